// Package maintenance owns maintenance records and the rule that a facility holds
// at most one scheduled or in-progress maintenance at a time.
//
// Record state is a pure function of the clock and the record window, except for
// Cancelled which is set explicitly and never overwritten. Every read and write
// first brings the facility's records up to date with the clock.
package maintenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"facility-maintenance-backend/internal/clock"
	"facility-maintenance-backend/internal/facilitylock"
	"facility-maintenance-backend/internal/model"
	"facility-maintenance-backend/internal/notification"
	"facility-maintenance-backend/internal/store"
	"facility-maintenance-backend/internal/window"
)

// Canceller cancels the reservations overlapping a committed record inside tx.
type Canceller interface {
	CancelOverlapping(ctx context.Context, tx store.Store, record model.MaintenanceRecord, now time.Time) ([]model.NotificationRequest, error)
}

// Registry schedules, updates, cancels and deletes maintenance records.
type Registry struct {
	store   store.Store
	locks   *facilitylock.Locker
	clock   clock.Clock
	cascade Canceller
	loc     *time.Location
}

// NewRegistry wires a registry. locks must be shared with every other component
// that checks maintenance state inside a facility critical section.
func NewRegistry(s store.Store, locks *facilitylock.Locker, clk clock.Clock, cascade Canceller, loc *time.Location) *Registry {
	if loc == nil {
		loc = time.UTC
	}
	return &Registry{store: s, locks: locks, clock: clk, cascade: cascade, loc: loc}
}

// ScheduleParams describes a new maintenance window.
type ScheduleParams struct {
	FacilityID          int64
	Type                model.MaintenanceType
	Description         string
	Window              window.Window
	AffectsAvailability bool
	CreatedBy           string
}

func (p ScheduleParams) validate() error {
	if p.FacilityID <= 0 {
		return fmt.Errorf("%w: facility id is required", ErrInvalidRequest)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRequest, p.Type)
	}
	if strings.TrimSpace(p.CreatedBy) == "" {
		return fmt.Errorf("%w: createdBy is required", ErrInvalidRequest)
	}
	return validWindow(p.Window)
}

func validWindow(w window.Window) error {
	if _, err := window.New(w.Start, w.End); err != nil {
		return err
	}
	return nil
}

// UpdateParams carries the fields to change; nil fields are left untouched.
type UpdateParams struct {
	Type                *model.MaintenanceType
	Description         *string
	Window              *window.Window
	AffectsAvailability *bool
}

// Result is the outcome of a mutating registry operation. Notifications must be
// handed to a sink by the caller once the operation has returned.
type Result struct {
	Record        model.MaintenanceRecord
	Notifications []model.NotificationRequest
	// Cascaded is the number of reservations cancelled by this operation.
	Cascaded int
}

// Schedule registers a maintenance window. If it affects availability, overlapping
// reservations are cancelled in the same transaction; any cascade failure leaves
// neither the record nor a cancelled reservation behind.
func (r *Registry) Schedule(ctx context.Context, p ScheduleParams) (Result, error) {
	if err := p.validate(); err != nil {
		return Result{}, err
	}
	now := r.clock.Now()
	if p.Window.EndsBy(now) {
		return Result{}, fmt.Errorf("%w: window %s has already ended", window.ErrInvalidWindow, p.Window)
	}

	unlock := r.locks.Lock(p.FacilityID)
	defer unlock()

	var res Result
	err := r.store.Transaction(ctx, func(tx store.Store) error {
		facility, err := tx.LoadFacility(ctx, p.FacilityID)
		if err != nil {
			return err
		}
		records, err := r.advance(ctx, tx, &facility, now)
		if err != nil {
			return err
		}
		if conflict := findConflict(facility.ID, records, p.Window, 0); conflict != nil {
			return conflict
		}

		record := model.MaintenanceRecord{
			FacilityID:          p.FacilityID,
			Type:                p.Type,
			Description:         strings.TrimSpace(p.Description),
			Window:              p.Window,
			AffectsAvailability: p.AffectsAvailability,
			State:               model.MaintenanceScheduled,
			CreatedBy:           p.CreatedBy,
		}
		record.State = record.StateAt(now)
		if err := tx.SaveMaintenance(ctx, &record); err != nil {
			return err
		}
		if err := r.syncAvailability(ctx, tx, &facility, append(records, record)); err != nil {
			return err
		}

		res.Record = record
		res.Notifications = append(res.Notifications, notification.NewRequest(
			model.CategoryMaintenanceScheduled,
			facility.ID,
			"",
			"Mantenimiento programado",
			fmt.Sprintf("%s estará en mantenimiento %s.", facility.Name, record.Window.Format(r.loc)),
			now,
		))

		if record.AffectsAvailability {
			cascaded, err := r.cascade.CancelOverlapping(ctx, tx, record, now)
			if err != nil {
				return err
			}
			res.Cascaded = len(cascaded)
			res.Notifications = append(res.Notifications, cascaded...)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Update edits a scheduled or in-progress record. The conflict check ignores the
// record itself. A changed window that affects availability cascades again.
func (r *Registry) Update(ctx context.Context, id int64, p UpdateParams) (Result, error) {
	if p.Type != nil && !p.Type.Valid() {
		return Result{}, fmt.Errorf("%w: unknown type %q", ErrInvalidRequest, *p.Type)
	}
	if p.Window != nil {
		if err := validWindow(*p.Window); err != nil {
			return Result{}, err
		}
	}
	now := r.clock.Now()
	if p.Window != nil && p.Window.EndsBy(now) {
		return Result{}, fmt.Errorf("%w: window %s has already ended", window.ErrInvalidWindow, *p.Window)
	}

	var res Result
	err := r.withRecord(ctx, id, now, func(tx store.Store, facility *model.Facility, records []model.MaintenanceRecord, record *model.MaintenanceRecord) error {
		if record.State.Terminal() {
			return fmt.Errorf("%w: record %d is %s", ErrRecordTerminal, record.ID, record.State)
		}

		recascade := false
		if p.Window != nil {
			if conflict := findConflict(facility.ID, records, *p.Window, record.ID); conflict != nil {
				return conflict
			}
			recascade = !p.Window.Start.Equal(record.Window.Start) || !p.Window.End.Equal(record.Window.End)
			record.Window = *p.Window
		}
		if p.Type != nil {
			record.Type = *p.Type
		}
		if p.Description != nil {
			record.Description = strings.TrimSpace(*p.Description)
		}
		if p.AffectsAvailability != nil {
			if *p.AffectsAvailability && !record.AffectsAvailability {
				recascade = true
			}
			record.AffectsAvailability = *p.AffectsAvailability
		}
		record.State = model.MaintenanceScheduled
		record.State = record.StateAt(now)

		if err := tx.SaveMaintenance(ctx, record); err != nil {
			return err
		}
		if err := r.syncAvailability(ctx, tx, facility, records); err != nil {
			return err
		}

		res.Record = *record
		if record.AffectsAvailability && recascade {
			cascaded, err := r.cascade.CancelOverlapping(ctx, tx, *record, now)
			if err != nil {
				return err
			}
			res.Cascaded = len(cascaded)
			res.Notifications = cascaded
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Cancel moves a scheduled or in-progress record to Cancelled. Reservations the
// record cancelled earlier stay cancelled.
func (r *Registry) Cancel(ctx context.Context, id int64, reason string) (Result, error) {
	now := r.clock.Now()

	var res Result
	err := r.withRecord(ctx, id, now, func(tx store.Store, facility *model.Facility, records []model.MaintenanceRecord, record *model.MaintenanceRecord) error {
		if record.State.Terminal() {
			return fmt.Errorf("%w: record %d is %s", ErrRecordTerminal, record.ID, record.State)
		}

		cancelledAt := now
		record.State = model.MaintenanceCancelled
		record.CancelReason = strings.TrimSpace(reason)
		record.CancelledAt = &cancelledAt
		if err := tx.SaveMaintenance(ctx, record); err != nil {
			return err
		}
		if err := r.syncAvailability(ctx, tx, facility, records); err != nil {
			return err
		}

		res.Record = *record
		res.Notifications = []model.NotificationRequest{notification.NewRequest(
			model.CategoryMaintenanceCancelled,
			facility.ID,
			"",
			"Mantenimiento cancelado",
			fmt.Sprintf("El mantenimiento de %s previsto para %s fue cancelado.", facility.Name, record.Window.Format(r.loc)),
			now,
		)}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Delete removes a completed or cancelled record from history.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	return r.withRecord(ctx, id, r.clock.Now(), func(tx store.Store, _ *model.Facility, _ []model.MaintenanceRecord, record *model.MaintenanceRecord) error {
		if !record.State.Terminal() {
			return fmt.Errorf("%w: record %d is %s", ErrRecordNotTerminal, record.ID, record.State)
		}
		return tx.DeleteMaintenance(ctx, record.ID)
	})
}

// AdvanceClock recomputes the state of every non-terminal record of the facility
// for now, and the facility availability with it. Calling it again with the same
// now changes nothing.
func (r *Registry) AdvanceClock(ctx context.Context, facilityID int64, now time.Time) ([]model.MaintenanceRecord, error) {
	unlock := r.locks.Lock(facilityID)
	defer unlock()

	var records []model.MaintenanceRecord
	err := r.store.Transaction(ctx, func(tx store.Store) error {
		facility, err := tx.LoadFacility(ctx, facilityID)
		if err != nil {
			return err
		}
		records, err = r.advance(ctx, tx, &facility, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// AdvanceAll runs AdvanceClock for every known facility and returns how many were processed.
func (r *Registry) AdvanceAll(ctx context.Context, now time.Time) (int, error) {
	facilities, err := r.store.ListFacilities(ctx)
	if err != nil {
		return 0, err
	}
	for _, f := range facilities {
		if _, err := r.AdvanceClock(ctx, f.ID, now); err != nil {
			return 0, fmt.Errorf("advance facility %d: %w", f.ID, err)
		}
	}
	return len(facilities), nil
}

// ListByFacility returns the facility's records, up to date with the clock.
func (r *Registry) ListByFacility(ctx context.Context, facilityID int64) ([]model.MaintenanceRecord, error) {
	return r.AdvanceClock(ctx, facilityID, r.clock.Now())
}

// Get returns one record, up to date with the clock.
func (r *Registry) Get(ctx context.Context, id int64) (model.MaintenanceRecord, error) {
	record, err := r.store.LoadMaintenance(ctx, id)
	if err != nil {
		return model.MaintenanceRecord{}, err
	}
	records, err := r.ListByFacility(ctx, record.FacilityID)
	if err != nil {
		return model.MaintenanceRecord{}, err
	}
	for _, rec := range records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return model.MaintenanceRecord{}, fmt.Errorf("%w: maintenance record %d", store.ErrNotFound, id)
}

// BlockingMaintenance returns the facility's scheduled or in-progress record, or nil.
// It runs inside the caller's transaction and facility critical section.
func (r *Registry) BlockingMaintenance(ctx context.Context, tx store.Store, facilityID int64, now time.Time) (*model.MaintenanceRecord, error) {
	facility, err := tx.LoadFacility(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	records, err := r.advance(ctx, tx, &facility, now)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].State.Blocking() {
			return &records[i], nil
		}
	}
	return nil, nil
}

// withRecord locks the record's facility, advances the clock in a transaction and
// hands fn a pointer into the advanced records slice.
func (r *Registry) withRecord(ctx context.Context, id int64, now time.Time,
	fn func(tx store.Store, facility *model.Facility, records []model.MaintenanceRecord, record *model.MaintenanceRecord) error) error {
	existing, err := r.store.LoadMaintenance(ctx, id)
	if err != nil {
		return err
	}

	unlock := r.locks.Lock(existing.FacilityID)
	defer unlock()

	return r.store.Transaction(ctx, func(tx store.Store) error {
		facility, err := tx.LoadFacility(ctx, existing.FacilityID)
		if err != nil {
			return err
		}
		records, err := r.advance(ctx, tx, &facility, now)
		if err != nil {
			return err
		}
		for i := range records {
			if records[i].ID == id {
				return fn(tx, &facility, records, &records[i])
			}
		}
		return fmt.Errorf("%w: maintenance record %d", store.ErrNotFound, id)
	})
}

// advance persists every time-driven state change and syncs facility availability.
func (r *Registry) advance(ctx context.Context, tx store.Store, facility *model.Facility, now time.Time) ([]model.MaintenanceRecord, error) {
	records, err := tx.LoadMaintenanceByFacility(ctx, facility.ID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		next := records[i].StateAt(now)
		if next == records[i].State {
			continue
		}
		records[i].State = next
		if err := tx.SaveMaintenance(ctx, &records[i]); err != nil {
			return nil, err
		}
	}
	if err := r.syncAvailability(ctx, tx, facility, records); err != nil {
		return nil, err
	}
	return records, nil
}

// syncAvailability marks the facility under maintenance exactly while an
// availability-affecting record is in progress.
func (r *Registry) syncAvailability(ctx context.Context, tx store.Store, facility *model.Facility, records []model.MaintenanceRecord) error {
	want := model.AvailabilityAvailable
	for _, rec := range records {
		if rec.State == model.MaintenanceInProgress && rec.AffectsAvailability {
			want = model.AvailabilityUnderMaintenance
			break
		}
	}
	if facility.Availability == want {
		return nil
	}
	facility.Availability = want
	return tx.SaveFacility(ctx, facility)
}

// findConflict returns the blocking record that prevents w from being scheduled,
// preferring one whose window overlaps w. Any blocking record conflicts: a facility
// never holds two scheduled or in-progress records, overlapping or not.
func findConflict(facilityID int64, records []model.MaintenanceRecord, w window.Window, excludeID int64) *ConflictError {
	var first *model.MaintenanceRecord
	for i := range records {
		rec := &records[i]
		if rec.ID == excludeID || !rec.State.Blocking() {
			continue
		}
		if rec.Window.Overlaps(w) {
			return &ConflictError{FacilityID: facilityID, Existing: *rec}
		}
		if first == nil {
			first = rec
		}
	}
	if first != nil {
		return &ConflictError{FacilityID: facilityID, Existing: *first}
	}
	return nil
}
