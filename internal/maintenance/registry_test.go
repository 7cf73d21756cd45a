package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"facility-maintenance-backend/internal/cascade"
	"facility-maintenance-backend/internal/clock"
	"facility-maintenance-backend/internal/facilitylock"
	"facility-maintenance-backend/internal/model"
	"facility-maintenance-backend/internal/store"
	"facility-maintenance-backend/internal/storetest"
	"facility-maintenance-backend/internal/window"
)

var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func at(h int) time.Time {
	return monday.Add(time.Duration(h) * time.Hour)
}

func span(t *testing.T, from, to int) window.Window {
	t.Helper()
	w, err := window.New(at(from), at(to))
	require.NoError(t, err)
	return w
}

type fixture struct {
	db    *gorm.DB
	store store.Store
	clock *clock.Fixed
	reg   *Registry
}

func newFixture(t *testing.T, c Canceller) *fixture {
	t.Helper()
	db := storetest.NewSQLite(t)
	s := store.NewGormStore(db)
	clk := clock.NewFixed(at(6))
	if c == nil {
		c = cascade.New(time.UTC)
	}
	storetest.Facility(t, db, 1, "Piscina Municipal")
	storetest.Facility(t, db, 2, "Cancha Norte")
	return &fixture{db: db, store: s, clock: clk, reg: NewRegistry(s, facilitylock.New(), clk, c, time.UTC)}
}

func (f *fixture) schedule(t *testing.T, facilityID int64, from, to int, affects bool) (Result, error) {
	t.Helper()
	return f.reg.Schedule(context.Background(), ScheduleParams{
		FacilityID:          facilityID,
		Type:                model.MaintenancePreventive,
		Description:         "Limpieza de filtros",
		Window:              span(t, from, to),
		AffectsAvailability: affects,
		CreatedBy:           "coord-7",
	})
}

func (f *fixture) facility(t *testing.T, id int64) model.Facility {
	t.Helper()
	fac, err := f.store.LoadFacility(context.Background(), id)
	require.NoError(t, err)
	return fac
}

func TestSchedule_RejectsOverlappingWindow(t *testing.T) {
	f := newFixture(t, nil)

	first, err := f.schedule(t, 1, 8, 10, false)
	require.NoError(t, err)
	assert.Equal(t, model.MaintenanceScheduled, first.Record.State)
	require.Len(t, first.Notifications, 1)
	assert.Equal(t, model.CategoryMaintenanceScheduled, first.Notifications[0].Category)

	_, err = f.schedule(t, 1, 9, 11, false)
	require.ErrorIs(t, err, ErrConflictingMaintenance)
	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, first.Record.ID, conflict.Existing.ID)

	records, err := f.reg.ListByFacility(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestSchedule_OneBlockingRecordPerFacility(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.schedule(t, 1, 8, 10, false)
	require.NoError(t, err)

	_, err = f.schedule(t, 1, 20, 22, false)
	assert.ErrorIs(t, err, ErrConflictingMaintenance, "a second blocking record is refused even without overlap")

	_, err = f.schedule(t, 2, 9, 11, false)
	assert.NoError(t, err, "other facilities are independent")
}

func TestSchedule_Validation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.reg.Schedule(ctx, ScheduleParams{FacilityID: 1, Type: "painting", Window: span(t, 8, 10), CreatedBy: "coord-7"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.reg.Schedule(ctx, ScheduleParams{FacilityID: 1, Type: model.MaintenanceCorrective, Window: span(t, 8, 10)})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.reg.Schedule(ctx, ScheduleParams{FacilityID: 1, Type: model.MaintenanceCorrective, Window: window.Window{Start: at(10), End: at(8)}, CreatedBy: "coord-7"})
	assert.ErrorIs(t, err, window.ErrInvalidWindow)

	_, err = f.schedule(t, 1, 2, 5, false)
	assert.ErrorIs(t, err, window.ErrInvalidWindow, "window already over")

	_, err = f.schedule(t, 99, 8, 10, false)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSchedule_CascadesOnlyWhenAffectingAvailability(t *testing.T) {
	f := newFixture(t, nil)
	r1 := storetest.Reservation(t, f.db, 1, "ana", at(11), at(13), model.ReservationConfirmed)
	r2 := storetest.Reservation(t, f.db, 1, "carla", at(12), at(14), model.ReservationConfirmed)

	res, err := f.schedule(t, 1, 10, 12, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cascaded)
	require.Len(t, res.Notifications, 2)
	assert.Equal(t, "ana", res.Notifications[1].RecipientID)

	var got model.Reservation
	require.NoError(t, f.db.First(&got, r1.ID).Error)
	assert.Equal(t, model.ReservationCancelled, got.State)
	require.NotNil(t, got.CancelledByMaintenanceID)
	assert.Equal(t, res.Record.ID, *got.CancelledByMaintenanceID)
	require.NoError(t, f.db.First(&got, r2.ID).Error)
	assert.Equal(t, model.ReservationConfirmed, got.State)

	r3 := storetest.Reservation(t, f.db, 2, "dario", at(10), at(11), model.ReservationConfirmed)
	res, err = f.schedule(t, 2, 10, 12, false)
	require.NoError(t, err)
	assert.Zero(t, res.Cascaded)
	require.NoError(t, f.db.First(&got, r3.ID).Error)
	assert.Equal(t, model.ReservationConfirmed, got.State)
}

// brokenCascade cancels one reservation and then fails.
type brokenCascade struct{}

func (brokenCascade) CancelOverlapping(ctx context.Context, tx store.Store, record model.MaintenanceRecord, now time.Time) ([]model.NotificationRequest, error) {
	rs, err := tx.LoadReservationsOverlapping(ctx, record.FacilityID, record.Window)
	if err != nil {
		return nil, err
	}
	rs[0].State = model.ReservationCancelled
	if err := tx.SaveReservation(ctx, &rs[0]); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: storage error", cascade.ErrCascadeFailed)
}

func TestSchedule_CascadeFailureRollsBack(t *testing.T) {
	f := newFixture(t, brokenCascade{})
	storetest.Reservation(t, f.db, 1, "ana", at(9), at(11), model.ReservationConfirmed)
	storetest.Reservation(t, f.db, 1, "bruno", at(11), at(12), model.ReservationPending)
	f.clock.Set(at(10))

	_, err := f.schedule(t, 1, 10, 12, true)
	require.ErrorIs(t, err, cascade.ErrCascadeFailed)

	var count int64
	require.NoError(t, f.db.Model(&model.MaintenanceRecord{}).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, f.db.Model(&model.Reservation{}).Where("state = ?", model.ReservationCancelled).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, model.AvailabilityAvailable, f.facility(t, 1).Availability)
}

func TestSchedule_ConcurrentRequestsOnOneFacility(t *testing.T) {
	f := newFixture(t, nil)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.schedule(t, 1, 8+i, 9+i, false)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrConflictingMaintenance):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, conflicts)
}

func TestAdvanceClock(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res, err := f.schedule(t, 1, 8, 10, true)
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityAvailable, f.facility(t, 1).Availability)

	records, err := f.reg.AdvanceClock(ctx, 1, at(8))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.MaintenanceInProgress, records[0].State)
	assert.Equal(t, model.AvailabilityUnderMaintenance, f.facility(t, 1).Availability)

	before, err := f.store.LoadMaintenance(ctx, res.Record.ID)
	require.NoError(t, err)
	_, err = f.reg.AdvanceClock(ctx, 1, at(8))
	require.NoError(t, err)
	after, err := f.store.LoadMaintenance(ctx, res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt, "second advance to the same instant writes nothing")

	records, err = f.reg.AdvanceClock(ctx, 1, at(10))
	require.NoError(t, err)
	assert.Equal(t, model.MaintenanceCompleted, records[0].State)
	assert.Equal(t, model.AvailabilityAvailable, f.facility(t, 1).Availability)

	_, err = f.schedule(t, 1, 12, 14, false)
	assert.NoError(t, err, "completed records no longer block")
}

func TestAdvanceAll(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.schedule(t, 1, 8, 10, true)
	require.NoError(t, err)
	_, err = f.schedule(t, 2, 9, 11, false)
	require.NoError(t, err)

	n, err := f.reg.AdvanceAll(context.Background(), at(9))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, model.AvailabilityUnderMaintenance, f.facility(t, 1).Availability)
	assert.Equal(t, model.AvailabilityAvailable, f.facility(t, 2).Availability)
}

func TestSchedule_InsideWindowMarksUnderMaintenance(t *testing.T) {
	f := newFixture(t, nil)
	f.clock.Set(at(9))

	res, err := f.schedule(t, 1, 8, 12, true)
	require.NoError(t, err)
	assert.Equal(t, model.MaintenanceInProgress, res.Record.State)
	assert.Equal(t, model.AvailabilityUnderMaintenance, f.facility(t, 1).Availability)

	_, err = f.reg.Cancel(context.Background(), res.Record.ID, "lluvia")
	require.NoError(t, err)
	assert.Equal(t, model.AvailabilityAvailable, f.facility(t, 1).Availability)
}

func TestCancelAndDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	booking := storetest.Reservation(t, f.db, 1, "ana", at(8), at(9), model.ReservationConfirmed)

	res, err := f.schedule(t, 1, 8, 10, true)
	require.NoError(t, err)

	err = f.reg.Delete(ctx, res.Record.ID)
	assert.ErrorIs(t, err, ErrRecordNotTerminal)

	cancelled, err := f.reg.Cancel(ctx, res.Record.ID, "  proveedor no disponible ")
	require.NoError(t, err)
	assert.Equal(t, model.MaintenanceCancelled, cancelled.Record.State)
	assert.Equal(t, "proveedor no disponible", cancelled.Record.CancelReason)
	require.NotNil(t, cancelled.Record.CancelledAt)
	require.Len(t, cancelled.Notifications, 1)
	assert.Equal(t, model.CategoryMaintenanceCancelled, cancelled.Notifications[0].Category)

	var got model.Reservation
	require.NoError(t, f.db.First(&got, booking.ID).Error)
	assert.Equal(t, model.ReservationCancelled, got.State, "cancelling maintenance does not restore bookings")

	// Cancelled stays cancelled once the window passes.
	records, err := f.reg.AdvanceClock(ctx, 1, at(11))
	require.NoError(t, err)
	assert.Equal(t, model.MaintenanceCancelled, records[0].State)

	_, err = f.reg.Cancel(ctx, res.Record.ID, "again")
	assert.ErrorIs(t, err, ErrRecordTerminal)

	require.NoError(t, f.reg.Delete(ctx, res.Record.ID))
	assert.ErrorIs(t, f.reg.Delete(ctx, res.Record.ID), store.ErrNotFound)
}

func TestCancel_CompletedIsTerminal(t *testing.T) {
	f := newFixture(t, nil)
	res, err := f.schedule(t, 1, 8, 10, false)
	require.NoError(t, err)

	f.clock.Set(at(10))
	_, err = f.reg.Cancel(context.Background(), res.Record.ID, "tarde")
	assert.ErrorIs(t, err, ErrRecordTerminal)

	got, err := f.reg.Get(context.Background(), res.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MaintenanceCompleted, got.State)
	assert.NoError(t, f.reg.Delete(context.Background(), res.Record.ID))
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	booking := storetest.Reservation(t, f.db, 1, "ana", at(14), at(15), model.ReservationConfirmed)

	res, err := f.schedule(t, 1, 8, 10, false)
	require.NoError(t, err)

	// Moving a record over its own old window is not a conflict.
	moved := span(t, 9, 11)
	updated, err := f.reg.Update(ctx, res.Record.ID, UpdateParams{Window: &moved})
	require.NoError(t, err)
	assert.Equal(t, moved, updated.Record.Window)
	assert.Zero(t, updated.Cascaded)

	affects := true
	later := span(t, 14, 16)
	desc := "Cambio de luminarias"
	kind := model.MaintenanceImprovement
	updated, err = f.reg.Update(ctx, res.Record.ID, UpdateParams{Window: &later, AffectsAvailability: &affects, Description: &desc, Type: &kind})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Cascaded)
	assert.Equal(t, desc, updated.Record.Description)
	assert.Equal(t, model.MaintenanceImprovement, updated.Record.Type)

	var got model.Reservation
	require.NoError(t, f.db.First(&got, booking.ID).Error)
	assert.Equal(t, model.ReservationCancelled, got.State)

	other, err := f.schedule(t, 2, 8, 10, false)
	require.NoError(t, err)
	_, err = f.reg.Cancel(ctx, other.Record.ID, "")
	require.NoError(t, err)
	_, err = f.reg.Update(ctx, other.Record.ID, UpdateParams{Description: &desc})
	assert.ErrorIs(t, err, ErrRecordTerminal)

	_, err = f.reg.Update(ctx, 404, UpdateParams{Description: &desc})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdate_ConflictWithOtherRecord(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	first, err := f.schedule(t, 1, 8, 10, false)
	require.NoError(t, err)
	_, err = f.reg.Cancel(ctx, first.Record.ID, "")
	require.NoError(t, err)
	second, err := f.schedule(t, 1, 12, 14, false)
	require.NoError(t, err)

	// A cancelled record does not block moving the live one over its window.
	w := span(t, 8, 10)
	_, err = f.reg.Update(ctx, second.Record.ID, UpdateParams{Window: &w})
	assert.NoError(t, err)
}

func TestBlockingMaintenance(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	err := f.store.Transaction(ctx, func(tx store.Store) error {
		rec, err := f.reg.BlockingMaintenance(ctx, tx, 1, at(6))
		assert.Nil(t, rec)
		return err
	})
	require.NoError(t, err)

	res, err := f.schedule(t, 1, 8, 10, false)
	require.NoError(t, err)

	err = f.store.Transaction(ctx, func(tx store.Store) error {
		rec, err := f.reg.BlockingMaintenance(ctx, tx, 1, at(9))
		require.NotNil(t, rec)
		assert.Equal(t, res.Record.ID, rec.ID)
		assert.Equal(t, model.MaintenanceInProgress, rec.State)
		return err
	})
	require.NoError(t, err)
}
