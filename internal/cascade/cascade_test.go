package cascade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facility-maintenance-backend/internal/model"
	"facility-maintenance-backend/internal/store"
	"facility-maintenance-backend/internal/storetest"
	"facility-maintenance-backend/internal/window"
)

var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func hour(h int) time.Time {
	return monday.Add(time.Duration(h) * time.Hour)
}

// failingStore fails SaveReservation once limit saves have succeeded.
type failingStore struct {
	store.Store
	limit int
	saves int
}

func (f *failingStore) SaveReservation(ctx context.Context, r *model.Reservation) error {
	if f.saves >= f.limit {
		return errors.New("disk full")
	}
	f.saves++
	return f.Store.SaveReservation(ctx, r)
}

func maintenanceRecord(t *testing.T, from, to int) model.MaintenanceRecord {
	t.Helper()
	w, err := window.New(hour(from), hour(to))
	require.NoError(t, err)
	return model.MaintenanceRecord{ID: 42, FacilityID: 1, Window: w, AffectsAvailability: true, State: model.MaintenanceScheduled}
}

func TestCascade_CancelOverlapping(t *testing.T) {
	ctx := context.Background()
	db := storetest.NewSQLite(t)
	s := store.NewGormStore(db)
	storetest.Facility(t, db, 1, "Piscina Municipal")
	storetest.Facility(t, db, 2, "Cancha Norte")

	overlapping := storetest.Reservation(t, db, 1, "ana", hour(11), hour(13), model.ReservationConfirmed)
	pending := storetest.Reservation(t, db, 1, "bruno", hour(9), hour(10).Add(30*time.Minute), model.ReservationPending)
	touching := storetest.Reservation(t, db, 1, "carla", hour(12), hour(14), model.ReservationConfirmed)
	completed := storetest.Reservation(t, db, 1, "dario", hour(10), hour(11), model.ReservationCompleted)
	elsewhere := storetest.Reservation(t, db, 2, "elena", hour(10), hour(12), model.ReservationConfirmed)

	notes, err := New(time.UTC).CancelOverlapping(ctx, s, maintenanceRecord(t, 10, 12), hour(8))
	require.NoError(t, err)

	require.Len(t, notes, 2)
	recipients := []string{notes[0].RecipientID, notes[1].RecipientID}
	assert.ElementsMatch(t, []string{"ana", "bruno"}, recipients)
	for _, n := range notes {
		assert.Equal(t, model.CategoryReservationCancelled, n.Category)
		assert.Equal(t, int64(1), n.TargetFacilityID)
		assert.Contains(t, n.Message, "04/03/2024 10:00–12:00")
		assert.NotEmpty(t, n.ID)
	}

	expected := map[int64]model.ReservationState{
		overlapping.ID: model.ReservationCancelled,
		pending.ID:     model.ReservationCancelled,
		touching.ID:    model.ReservationConfirmed,
		completed.ID:   model.ReservationCompleted,
		elsewhere.ID:   model.ReservationConfirmed,
	}
	for id, state := range expected {
		var r model.Reservation
		require.NoError(t, db.First(&r, id).Error)
		assert.Equal(t, state, r.State, "reservation %d", id)
		if state == model.ReservationCancelled {
			require.NotNil(t, r.CancelledByMaintenanceID)
			assert.Equal(t, int64(42), *r.CancelledByMaintenanceID)
		}
	}
}

func TestCascade_NothingToCancel(t *testing.T) {
	db := storetest.NewSQLite(t)
	storetest.Facility(t, db, 1, "Gimnasio")

	notes, err := New(nil).CancelOverlapping(context.Background(), store.NewGormStore(db), maintenanceRecord(t, 10, 12), hour(8))
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestCascade_StorageFailure(t *testing.T) {
	db := storetest.NewSQLite(t)
	storetest.Facility(t, db, 1, "Piscina Municipal")
	for i := 0; i < 5; i++ {
		storetest.Reservation(t, db, 1, "owner", hour(10), hour(11), model.ReservationConfirmed)
	}

	fs := &failingStore{Store: store.NewGormStore(db), limit: 2}
	notes, err := New(time.UTC).CancelOverlapping(context.Background(), fs, maintenanceRecord(t, 10, 12), hour(8))

	assert.ErrorIs(t, err, ErrCascadeFailed)
	assert.Nil(t, notes)
}
