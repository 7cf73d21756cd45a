package model

import (
	"time"

	"facility-maintenance-backend/internal/window"
)

// ReservationState is the lifecycle state of a booking.
type ReservationState string

const (
	ReservationPending   ReservationState = "pending"
	ReservationConfirmed ReservationState = "confirmed"
	ReservationCompleted ReservationState = "completed"
	ReservationCancelled ReservationState = "cancelled"
)

// Active reports whether the reservation still holds its slot.
func (s ReservationState) Active() bool {
	return s == ReservationPending || s == ReservationConfirmed
}

// Reservation is a booking of a facility. Bookings are created elsewhere; the
// maintenance cascade only cancels them.
type Reservation struct {
	ID                       int64            `gorm:"primaryKey" json:"id"`
	FacilityID               int64            `gorm:"index;not null" json:"facilityId"`
	OwnerID                  string           `gorm:"size:128;index;not null" json:"ownerId"`
	Window                   window.Window    `gorm:"embedded;embeddedPrefix:window_" json:"window"`
	State                    ReservationState `gorm:"size:32;index;not null" json:"state"`
	CancelReason             string           `gorm:"type:text" json:"cancelReason,omitempty"`
	CancelledByMaintenanceID *int64           `json:"cancelledByMaintenanceId,omitempty"`
	CreatedAt                time.Time        `gorm:"not null" json:"createdAt"`
	UpdatedAt                time.Time        `gorm:"not null" json:"updatedAt"`
}
