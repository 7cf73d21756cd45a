// Package observation implements the review lifecycle of field-reported facility issues.
//
//	Pending --approve--> InProcess --resolve--> Resolved
//	Pending --reject---> Cancelled
//	InProcess --cancel-> Cancelled
package observation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"facility-maintenance-backend/internal/clock"
	"facility-maintenance-backend/internal/facilitylock"
	"facility-maintenance-backend/internal/model"
	"facility-maintenance-backend/internal/notification"
	"facility-maintenance-backend/internal/store"
)

var (
	ErrBlockedByActiveMaintenance = errors.New("facility has scheduled or in-progress maintenance")
	ErrBlockedByActiveObservation = errors.New("facility already has an observation in process")
	ErrAlreadyResolved            = errors.New("observation has already been reviewed")
	ErrNotInProcess               = errors.New("observation is not in process")
	ErrInvalidObservation         = errors.New("invalid observation")
)

// MaintenanceGuard reports the facility's blocking maintenance record, if any,
// from inside the caller's transaction.
type MaintenanceGuard interface {
	BlockingMaintenance(ctx context.Context, tx store.Store, facilityID int64, now time.Time) (*model.MaintenanceRecord, error)
}

// Workflow drives observations through review. It shares the facility locker with
// the maintenance registry so approval and scheduling never interleave.
type Workflow struct {
	store store.Store
	locks *facilitylock.Locker
	clock clock.Clock
	guard MaintenanceGuard
}

func NewWorkflow(s store.Store, locks *facilitylock.Locker, clk clock.Clock, guard MaintenanceGuard) *Workflow {
	return &Workflow{store: s, locks: locks, clock: clk, guard: guard}
}

// SubmitParams describes a new observation.
type SubmitParams struct {
	FacilityID  int64
	ReporterID  string
	Title       string
	Description string
	Priority    model.Priority
	Location    string
	Photos      []string
}

// Outcome is the result of a review transition.
type Outcome struct {
	Observation   model.Observation
	Notifications []model.NotificationRequest
}

// Submit records a new observation in state Pending. Submission never conflicts.
func (w *Workflow) Submit(ctx context.Context, p SubmitParams) (model.Observation, error) {
	if p.FacilityID <= 0 {
		return model.Observation{}, fmt.Errorf("%w: facility id is required", ErrInvalidObservation)
	}
	if strings.TrimSpace(p.Title) == "" {
		return model.Observation{}, fmt.Errorf("%w: title is required", ErrInvalidObservation)
	}
	if strings.TrimSpace(p.ReporterID) == "" {
		return model.Observation{}, fmt.Errorf("%w: reporterId is required", ErrInvalidObservation)
	}
	if p.Priority == "" {
		p.Priority = model.PriorityMedium
	}
	if !p.Priority.Valid() {
		return model.Observation{}, fmt.Errorf("%w: unknown priority %q", ErrInvalidObservation, p.Priority)
	}
	if _, err := w.store.LoadFacility(ctx, p.FacilityID); err != nil {
		return model.Observation{}, err
	}

	obs := model.Observation{
		FacilityID:  p.FacilityID,
		Title:       strings.TrimSpace(p.Title),
		Description: strings.TrimSpace(p.Description),
		Priority:    p.Priority,
		State:       model.ObservationPending,
		ReporterID:  p.ReporterID,
		Location:    strings.TrimSpace(p.Location),
		Photos:      p.Photos,
	}
	if err := w.store.SaveObservation(ctx, &obs); err != nil {
		return model.Observation{}, err
	}
	return obs, nil
}

// Approve moves a pending observation to InProcess and flags the facility as
// requiring maintenance. It is refused while the facility has blocking maintenance
// or another observation in process.
func (w *Workflow) Approve(ctx context.Context, id int64, reviewerID, comment string) (Outcome, error) {
	now := w.clock.Now()
	return w.transition(ctx, id, func(tx store.Store, facility *model.Facility, obs *model.Observation) (model.NotificationRequest, error) {
		if obs.State != model.ObservationPending {
			return model.NotificationRequest{}, fmt.Errorf("%w: observation %d is %s", ErrAlreadyResolved, obs.ID, obs.State)
		}

		blocking, err := w.guard.BlockingMaintenance(ctx, tx, facility.ID, now)
		if err != nil {
			return model.NotificationRequest{}, err
		}
		if blocking != nil {
			return model.NotificationRequest{}, fmt.Errorf("%w: maintenance %d is %s", ErrBlockedByActiveMaintenance, blocking.ID, blocking.State)
		}
		other, err := inProcess(ctx, tx, facility.ID, obs.ID)
		if err != nil {
			return model.NotificationRequest{}, err
		}
		if other != nil {
			return model.NotificationRequest{}, fmt.Errorf("%w: observation %d", ErrBlockedByActiveObservation, other.ID)
		}

		// The guard may have advanced the clock and saved a new availability.
		fresh, err := tx.LoadFacility(ctx, facility.ID)
		if err != nil {
			return model.NotificationRequest{}, err
		}
		*facility = fresh

		review(obs, model.ObservationInProcess, reviewerID, comment, now)
		facility.RequiresMaintenance = true
		if err := tx.SaveFacility(ctx, facility); err != nil {
			return model.NotificationRequest{}, err
		}
		return notification.NewRequest(
			model.CategoryObservationApproved,
			facility.ID,
			obs.ReporterID,
			"Observación aprobada",
			fmt.Sprintf("Tu observación \"%s\" sobre %s fue aprobada y está en proceso.", obs.Title, facility.Name),
			now,
		), nil
	})
}

// Reject cancels a pending observation. The facility flag is left untouched.
func (w *Workflow) Reject(ctx context.Context, id int64, reviewerID, comment string) (Outcome, error) {
	now := w.clock.Now()
	return w.transition(ctx, id, func(tx store.Store, facility *model.Facility, obs *model.Observation) (model.NotificationRequest, error) {
		if obs.State != model.ObservationPending {
			return model.NotificationRequest{}, fmt.Errorf("%w: observation %d is %s", ErrAlreadyResolved, obs.ID, obs.State)
		}
		review(obs, model.ObservationCancelled, reviewerID, comment, now)

		message := fmt.Sprintf("Tu observación \"%s\" sobre %s fue rechazada.", obs.Title, facility.Name)
		if obs.ReviewComment != "" {
			message += " Motivo: " + obs.ReviewComment
		}
		return notification.NewRequest(model.CategoryObservationRejected, facility.ID, obs.ReporterID,
			"Observación rechazada", message, now), nil
	})
}

// Resolve closes an observation that is in process.
func (w *Workflow) Resolve(ctx context.Context, id int64) (Outcome, error) {
	now := w.clock.Now()
	return w.transition(ctx, id, func(tx store.Store, facility *model.Facility, obs *model.Observation) (model.NotificationRequest, error) {
		if obs.State != model.ObservationInProcess {
			return model.NotificationRequest{}, fmt.Errorf("%w: observation %d is %s", ErrNotInProcess, obs.ID, obs.State)
		}
		obs.State = model.ObservationResolved
		obs.ResolvedAt = &now
		if err := w.releaseFacility(ctx, tx, facility, obs.ID); err != nil {
			return model.NotificationRequest{}, err
		}
		return notification.NewRequest(model.CategoryObservationResolved, facility.ID, obs.ReporterID,
			"Observación resuelta",
			fmt.Sprintf("Tu observación \"%s\" sobre %s fue resuelta.", obs.Title, facility.Name),
			now), nil
	})
}

// Cancel abandons an observation that is in process.
func (w *Workflow) Cancel(ctx context.Context, id int64, reason string) (Outcome, error) {
	now := w.clock.Now()
	return w.transition(ctx, id, func(tx store.Store, facility *model.Facility, obs *model.Observation) (model.NotificationRequest, error) {
		if obs.State != model.ObservationInProcess {
			return model.NotificationRequest{}, fmt.Errorf("%w: observation %d is %s", ErrNotInProcess, obs.ID, obs.State)
		}
		obs.State = model.ObservationCancelled
		if reason = strings.TrimSpace(reason); reason != "" {
			obs.ReviewComment = reason
		}
		if err := w.releaseFacility(ctx, tx, facility, obs.ID); err != nil {
			return model.NotificationRequest{}, err
		}
		return notification.NewRequest(model.CategoryObservationCancelled, facility.ID, obs.ReporterID,
			"Observación cancelada",
			fmt.Sprintf("Tu observación \"%s\" sobre %s fue cancelada.", obs.Title, facility.Name),
			now), nil
	})
}

func (w *Workflow) Get(ctx context.Context, id int64) (model.Observation, error) {
	return w.store.LoadObservation(ctx, id)
}

func (w *Workflow) ListByFacility(ctx context.Context, facilityID int64) ([]model.Observation, error) {
	if _, err := w.store.LoadFacility(ctx, facilityID); err != nil {
		return nil, err
	}
	return w.store.LoadObservationsByFacility(ctx, facilityID)
}

// transition runs fn on a fresh copy of the observation inside the facility's
// critical section and persists the observation if fn succeeds.
func (w *Workflow) transition(ctx context.Context, id int64,
	fn func(tx store.Store, facility *model.Facility, obs *model.Observation) (model.NotificationRequest, error)) (Outcome, error) {
	existing, err := w.store.LoadObservation(ctx, id)
	if err != nil {
		return Outcome{}, err
	}

	unlock := w.locks.Lock(existing.FacilityID)
	defer unlock()

	var out Outcome
	err = w.store.Transaction(ctx, func(tx store.Store) error {
		obs, err := tx.LoadObservation(ctx, id)
		if err != nil {
			return err
		}
		facility, err := tx.LoadFacility(ctx, obs.FacilityID)
		if err != nil {
			return err
		}
		note, err := fn(tx, &facility, &obs)
		if err != nil {
			return err
		}
		if err := tx.SaveObservation(ctx, &obs); err != nil {
			return err
		}
		out = Outcome{Observation: obs, Notifications: []model.NotificationRequest{note}}
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}

// releaseFacility clears RequiresMaintenance once no other observation is in process.
func (w *Workflow) releaseFacility(ctx context.Context, tx store.Store, facility *model.Facility, closingID int64) error {
	other, err := inProcess(ctx, tx, facility.ID, closingID)
	if err != nil || other != nil || !facility.RequiresMaintenance {
		return err
	}
	facility.RequiresMaintenance = false
	return tx.SaveFacility(ctx, facility)
}

func inProcess(ctx context.Context, tx store.Store, facilityID, excludeID int64) (*model.Observation, error) {
	all, err := tx.LoadObservationsByFacility(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID != excludeID && all[i].State == model.ObservationInProcess {
			return &all[i], nil
		}
	}
	return nil, nil
}

func review(obs *model.Observation, state model.ObservationState, reviewerID, comment string, now time.Time) {
	obs.State = state
	obs.ReviewerID = reviewerID
	obs.ReviewComment = strings.TrimSpace(comment)
	obs.ReviewedAt = &now
}
