// Package storetest provides database fixtures shared by package tests.
package storetest

import (
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"facility-maintenance-backend/internal/model"
	"facility-maintenance-backend/internal/window"
)

var (
	seq       int64
	unsafeDSN = regexp.MustCompile(`[^A-Za-z0-9]+`)
)

// NewSQLite opens a private in-memory SQLite database with the full schema migrated.
// A single connection is used so transactions behave like a serial database.
func NewSQLite(t testing.TB) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("%s_%d", unsafeDSN.ReplaceAllString(t.Name(), "_"), atomic.AddInt64(&seq, 1))
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.All()...))
	return db
}

// Facility inserts an available facility.
func Facility(t testing.TB, db *gorm.DB, id int64, name string) model.Facility {
	t.Helper()
	f := model.Facility{ID: id, Name: name, Location: "Av. Principal 100", Availability: model.AvailabilityAvailable}
	require.NoError(t, db.Create(&f).Error)
	return f
}

// Reservation inserts a reservation for facility over [start, end).
func Reservation(t testing.TB, db *gorm.DB, facilityID int64, owner string, start, end time.Time, state model.ReservationState) model.Reservation {
	t.Helper()
	w, err := window.New(start, end)
	require.NoError(t, err)
	r := model.Reservation{FacilityID: facilityID, OwnerID: owner, Window: w, State: state}
	require.NoError(t, db.Create(&r).Error)
	return r
}
