// Package scheduling is the entry point for the maintenance and observation use
// cases. It holds no state of its own: it validates boundary requests, delegates
// to the registry and the workflow, and hands the produced notifications to the sink.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"facility-maintenance-backend/internal/cascade"
	"facility-maintenance-backend/internal/clock"
	"facility-maintenance-backend/internal/maintenance"
	"facility-maintenance-backend/internal/metrics"
	"facility-maintenance-backend/internal/model"
	"facility-maintenance-backend/internal/notification"
	"facility-maintenance-backend/internal/observation"
	"facility-maintenance-backend/internal/parse"
	"facility-maintenance-backend/internal/store"
	"facility-maintenance-backend/internal/window"
)

type Facade struct {
	store    store.Store
	registry *maintenance.Registry
	workflow *observation.Workflow
	sink     notification.Sink
	metrics  *metrics.Recorder
	clock    clock.Clock
}

// Deps groups the collaborators of a Facade. Metrics may be nil.
type Deps struct {
	Store    store.Store
	Registry *maintenance.Registry
	Workflow *observation.Workflow
	Sink     notification.Sink
	Metrics  *metrics.Recorder
	Clock    clock.Clock
}

func NewFacade(d Deps) *Facade {
	sink := d.Sink
	if sink == nil {
		sink = notification.Discard{}
	}
	clk := d.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	return &Facade{
		store:    d.Store,
		registry: d.Registry,
		workflow: d.Workflow,
		sink:     sink,
		metrics:  d.Metrics,
		clock:    clk,
	}
}

// ScheduleMaintenance registers a maintenance window and cascades it onto
// overlapping reservations when it affects availability.
func (f *Facade) ScheduleMaintenance(ctx context.Context, req ScheduleMaintenanceRequest) (rec model.MaintenanceRecord, err error) {
	defer f.observe("schedule_maintenance", time.Now(), &err)

	kind, err := parse.MaintenanceType(req.Type)
	if err != nil {
		return model.MaintenanceRecord{}, fmt.Errorf("%w: %w", maintenance.ErrInvalidRequest, err)
	}
	w, err := window.New(req.WindowStart, req.WindowEnd)
	if err != nil {
		return model.MaintenanceRecord{}, err
	}

	res, err := f.registry.Schedule(ctx, maintenance.ScheduleParams{
		FacilityID:          req.FacilityID,
		Type:                kind,
		Description:         req.Description,
		Window:              w,
		AffectsAvailability: req.AffectsAvailability,
		CreatedBy:           req.CreatedBy,
	})
	if err != nil {
		return model.MaintenanceRecord{}, err
	}
	f.metrics.Cascaded(res.Cascaded)
	f.dispatch(ctx, res.Notifications)
	return res.Record, nil
}

func (f *Facade) UpdateMaintenance(ctx context.Context, id int64, req UpdateMaintenanceRequest) (rec model.MaintenanceRecord, err error) {
	defer f.observe("update_maintenance", time.Now(), &err)

	var p maintenance.UpdateParams
	if req.Type != nil {
		kind, err := parse.MaintenanceType(*req.Type)
		if err != nil {
			return model.MaintenanceRecord{}, fmt.Errorf("%w: %w", maintenance.ErrInvalidRequest, err)
		}
		p.Type = &kind
	}
	if (req.WindowStart == nil) != (req.WindowEnd == nil) {
		return model.MaintenanceRecord{}, fmt.Errorf("%w: windowStart and windowEnd must be set together", maintenance.ErrInvalidRequest)
	}
	if req.WindowStart != nil {
		w, err := window.New(*req.WindowStart, *req.WindowEnd)
		if err != nil {
			return model.MaintenanceRecord{}, err
		}
		p.Window = &w
	}
	p.Description = req.Description
	p.AffectsAvailability = req.AffectsAvailability

	res, err := f.registry.Update(ctx, id, p)
	if err != nil {
		return model.MaintenanceRecord{}, err
	}
	f.metrics.Cascaded(res.Cascaded)
	f.dispatch(ctx, res.Notifications)
	return res.Record, nil
}

func (f *Facade) CancelMaintenance(ctx context.Context, id int64, reason string) (rec model.MaintenanceRecord, err error) {
	defer f.observe("cancel_maintenance", time.Now(), &err)

	res, err := f.registry.Cancel(ctx, id, reason)
	if err != nil {
		return model.MaintenanceRecord{}, err
	}
	f.dispatch(ctx, res.Notifications)
	return res.Record, nil
}

func (f *Facade) DeleteMaintenance(ctx context.Context, id int64) (err error) {
	defer f.observe("delete_maintenance", time.Now(), &err)
	return f.registry.Delete(ctx, id)
}

func (f *Facade) FacilityMaintenance(ctx context.Context, facilityID int64) ([]model.MaintenanceRecord, error) {
	return f.registry.ListByFacility(ctx, facilityID)
}

// Facilities lists every facility with its availability brought up to date.
func (f *Facade) Facilities(ctx context.Context) ([]model.Facility, error) {
	if _, err := f.registry.AdvanceAll(ctx, f.clock.Now()); err != nil {
		return nil, err
	}
	return f.store.ListFacilities(ctx)
}

func (f *Facade) SubmitObservation(ctx context.Context, req SubmitObservationRequest) (obs model.Observation, err error) {
	defer f.observe("submit_observation", time.Now(), &err)

	priority, err := parse.Priority(req.Priority)
	if err != nil {
		return model.Observation{}, fmt.Errorf("%w: %w", observation.ErrInvalidObservation, err)
	}
	return f.workflow.Submit(ctx, observation.SubmitParams{
		FacilityID:  req.FacilityID,
		ReporterID:  req.ReporterID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		Location:    req.Location,
		Photos:      req.Photos,
	})
}

// ReviewObservation approves or rejects a pending observation.
func (f *Facade) ReviewObservation(ctx context.Context, id int64, req ReviewObservationRequest) (obs model.Observation, err error) {
	defer f.observe("review_observation", time.Now(), &err)

	decision, err := ParseDecision(req.Decision)
	if err != nil {
		return model.Observation{}, fmt.Errorf("%w: %w", observation.ErrInvalidObservation, err)
	}

	var out observation.Outcome
	switch decision {
	case Approve:
		out, err = f.workflow.Approve(ctx, id, req.ReviewerID, req.Comment)
	case Reject:
		out, err = f.workflow.Reject(ctx, id, req.ReviewerID, req.Comment)
	}
	if err != nil {
		return model.Observation{}, err
	}
	f.dispatch(ctx, out.Notifications)
	return out.Observation, nil
}

func (f *Facade) ResolveObservation(ctx context.Context, id int64) (obs model.Observation, err error) {
	defer f.observe("resolve_observation", time.Now(), &err)

	out, err := f.workflow.Resolve(ctx, id)
	if err != nil {
		return model.Observation{}, err
	}
	f.dispatch(ctx, out.Notifications)
	return out.Observation, nil
}

func (f *Facade) CancelObservation(ctx context.Context, id int64, reason string) (obs model.Observation, err error) {
	defer f.observe("cancel_observation", time.Now(), &err)

	out, err := f.workflow.Cancel(ctx, id, reason)
	if err != nil {
		return model.Observation{}, err
	}
	f.dispatch(ctx, out.Notifications)
	return out.Observation, nil
}

func (f *Facade) FacilityObservations(ctx context.Context, facilityID int64) ([]model.Observation, error) {
	return f.workflow.ListByFacility(ctx, facilityID)
}

// dispatch is best effort: a sink failure never undoes a committed operation.
func (f *Facade) dispatch(ctx context.Context, notes []model.NotificationRequest) {
	for _, n := range notes {
		if err := f.sink.Enqueue(ctx, n); err != nil {
			log.Printf("Notification %s (%s) for facility %d not queued: %v", n.ID, n.Category, n.TargetFacilityID, err)
			f.metrics.Notification(metrics.OutcomeError)
			continue
		}
		f.metrics.Notification(metrics.OutcomeOK)
	}
}

func (f *Facade) observe(op string, start time.Time, err *error) {
	outcome := metrics.OutcomeOK
	switch {
	case *err == nil:
	case IsRejection(*err):
		outcome = metrics.OutcomeRejected
	default:
		outcome = metrics.OutcomeError
	}
	f.metrics.Observe(op, outcome, time.Since(start))
}

var rejections = []error{
	window.ErrInvalidWindow,
	store.ErrNotFound,
	maintenance.ErrInvalidRequest,
	maintenance.ErrConflictingMaintenance,
	maintenance.ErrRecordTerminal,
	maintenance.ErrRecordNotTerminal,
	observation.ErrInvalidObservation,
	observation.ErrBlockedByActiveMaintenance,
	observation.ErrBlockedByActiveObservation,
	observation.ErrAlreadyResolved,
	observation.ErrNotInProcess,
}

// IsRejection reports whether err is a per-request domain outcome rather than an
// infrastructure failure. Cascade failures are never rejections.
func IsRejection(err error) bool {
	if errors.Is(err, cascade.ErrCascadeFailed) {
		return false
	}
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
