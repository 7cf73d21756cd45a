// Package cascade cancels the reservations invalidated by a newly committed
// maintenance window.
package cascade

import (
	"context"
	"errors"
	"fmt"
	"time"

	"facility-maintenance-backend/internal/model"
	"facility-maintenance-backend/internal/notification"
	"facility-maintenance-backend/internal/store"
)

// ErrCascadeFailed is returned when any reservation could not be cancelled. The
// caller's transaction must be rolled back.
var ErrCascadeFailed = errors.New("reservation cascade failed")

// Cascade cancels overlapping reservations and builds one notification per owner.
type Cascade struct {
	loc *time.Location
}

// New creates a Cascade that renders times in loc (UTC when nil).
func New(loc *time.Location) *Cascade {
	if loc == nil {
		loc = time.UTC
	}
	return &Cascade{loc: loc}
}

// CancelOverlapping cancels every pending or confirmed reservation of the record's
// facility that overlaps the record's window. It must run inside the transaction
// that commits the record.
func (c *Cascade) CancelOverlapping(ctx context.Context, tx store.Store, record model.MaintenanceRecord, now time.Time) ([]model.NotificationRequest, error) {
	reservations, err := tx.LoadReservationsOverlapping(ctx, record.FacilityID, record.Window)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCascadeFailed, err)
	}

	maintenanceWindow := record.Window.Format(c.loc)
	notes := make([]model.NotificationRequest, 0, len(reservations))
	for i := range reservations {
		r := &reservations[i]
		maintenanceID := record.ID
		r.State = model.ReservationCancelled
		r.CancelReason = fmt.Sprintf("Mantenimiento de la instalación %s", maintenanceWindow)
		r.CancelledByMaintenanceID = &maintenanceID

		if err := tx.SaveReservation(ctx, r); err != nil {
			return nil, fmt.Errorf("%w: reservation %d: %w", ErrCascadeFailed, r.ID, err)
		}

		notes = append(notes, notification.NewRequest(
			model.CategoryReservationCancelled,
			record.FacilityID,
			r.OwnerID,
			"Reserva cancelada por mantenimiento",
			fmt.Sprintf("Tu reserva del %s fue cancelada. La instalación no estará disponible durante %s.",
				r.Window.Format(c.loc), maintenanceWindow),
			now,
		))
	}
	return notes, nil
}
