package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"facility-maintenance-backend/internal/model"
	"facility-maintenance-backend/internal/storetest"
	"facility-maintenance-backend/internal/window"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func hour(h int) time.Time {
	return monday.Add(time.Duration(h) * time.Hour)
}

func TestGormStore_TransactionRollsBackOnError(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "maintenance_records"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectRollback()

	w, err := window.New(hour(8), hour(10))
	require.NoError(t, err)

	boom := errors.New("cascade failed")
	err = s.Transaction(context.Background(), func(tx Store) error {
		rec := model.MaintenanceRecord{FacilityID: 5, Type: model.MaintenancePreventive, Window: w, State: model.MaintenanceScheduled, CreatedBy: "admin"}
		if err := tx.SaveMaintenance(context.Background(), &rec); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_LoadMaintenanceByFacility(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "maintenance_records" WHERE facility_id = $1 ORDER BY window_start`)).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "facility_id", "state", "window_start", "window_end"}).
			AddRow(1, 5, "scheduled", hour(8), hour(10)).
			AddRow(2, 5, "cancelled", hour(12), hour(14)))

	records, err := s.LoadMaintenanceByFacility(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, model.MaintenanceScheduled, records[0].State)
	assert.True(t, records[1].Window.Start.Equal(hour(12)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_LoadFacilityNotFound(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(`SELECT \* FROM "facilities" WHERE "facilities"."id" = \$1 ORDER BY "facilities"."id" LIMIT \$[0-9]+`).
		WithArgs(9, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.LoadFacility(context.Background(), 9)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_SQLite(t *testing.T) {
	ctx := context.Background()
	db := storetest.NewSQLite(t)
	s := NewGormStore(db)

	storetest.Facility(t, db, 1, "Piscina Municipal")
	storetest.Facility(t, db, 2, "Cancha Norte")

	t.Run("overlapping reservations respect half-open windows", func(t *testing.T) {
		overlapping := storetest.Reservation(t, db, 1, "ana", hour(11), hour(13), model.ReservationConfirmed)
		storetest.Reservation(t, db, 1, "bruno", hour(12), hour(14), model.ReservationConfirmed)
		storetest.Reservation(t, db, 1, "carla", hour(10), hour(11), model.ReservationCancelled)
		storetest.Reservation(t, db, 2, "dario", hour(10), hour(12), model.ReservationPending)

		w, err := window.New(hour(10), hour(12))
		require.NoError(t, err)

		got, err := s.LoadReservationsOverlapping(ctx, 1, w)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, overlapping.ID, got[0].ID)
	})

	t.Run("transaction rollback discards writes", func(t *testing.T) {
		w, err := window.New(hour(20), hour(22))
		require.NoError(t, err)

		err = s.Transaction(ctx, func(tx Store) error {
			rec := model.MaintenanceRecord{FacilityID: 2, Type: model.MaintenanceCorrective, Window: w, State: model.MaintenanceScheduled, CreatedBy: "admin"}
			if err := tx.SaveMaintenance(ctx, &rec); err != nil {
				return err
			}
			return errors.New("abort")
		})
		require.Error(t, err)

		records, err := s.LoadMaintenanceByFacility(ctx, 2)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("delete of unknown record is not found", func(t *testing.T) {
		assert.ErrorIs(t, s.DeleteMaintenance(ctx, 999), ErrNotFound)
	})

	t.Run("upsert facilities keeps maintenance flags", func(t *testing.T) {
		f, err := s.LoadFacility(ctx, 1)
		require.NoError(t, err)
		f.RequiresMaintenance = true
		f.Availability = model.AvailabilityUnderMaintenance
		require.NoError(t, s.SaveFacility(ctx, &f))

		require.NoError(t, s.UpsertFacilities(ctx, []model.Facility{
			{ID: 1, Name: "Piscina Olímpica", Location: "Calle 5", Availability: model.AvailabilityAvailable},
			{ID: 3, Name: "Gimnasio", Location: "Calle 9", Availability: model.AvailabilityAvailable},
		}))

		f, err = s.LoadFacility(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Piscina Olímpica", f.Name)
		assert.True(t, f.RequiresMaintenance)
		assert.Equal(t, model.AvailabilityUnderMaintenance, f.Availability)

		all, err := s.ListFacilities(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("subscriptions are upserted per endpoint", func(t *testing.T) {
		sub := model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "k1", Auth: "a1", UserID: "ana"}
		require.NoError(t, s.UpsertSubscription(ctx, &sub))
		sub2 := model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "k2", Auth: "a2", UserID: "ana"}
		require.NoError(t, s.UpsertSubscription(ctx, &sub2))

		subs, err := s.LoadSubscriptionsByUser(ctx, "ana")
		require.NoError(t, err)
		require.Len(t, subs, 1)
		assert.Equal(t, "k2", subs[0].P256DH)

		require.NoError(t, s.DeleteSubscription(ctx, sub.Endpoint))
		_, err = s.LoadSubscription(ctx, sub.Endpoint)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("observations keep their photo references", func(t *testing.T) {
		o := model.Observation{FacilityID: 2, Title: "Red rota", Priority: model.PriorityHigh, State: model.ObservationPending, ReporterID: "coord-1", Photos: []string{"blob://a.jpg", "blob://b.jpg"}}
		require.NoError(t, s.SaveObservation(ctx, &o))

		got, err := s.LoadObservation(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"blob://a.jpg", "blob://b.jpg"}, got.Photos)
	})
}
