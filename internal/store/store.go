package store

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"facility-maintenance-backend/internal/model"
	"facility-maintenance-backend/internal/window"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store defines every persistence operation the scheduling core needs.
// Implementations must make Transaction atomic: a non-nil error from fn discards
// every write performed through the tx Store.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Store) error) error

	LoadFacility(ctx context.Context, id int64) (model.Facility, error)
	SaveFacility(ctx context.Context, facility *model.Facility) error
	ListFacilities(ctx context.Context) ([]model.Facility, error)
	UpsertFacilities(ctx context.Context, facilities []model.Facility) error

	LoadMaintenance(ctx context.Context, id int64) (model.MaintenanceRecord, error)
	LoadMaintenanceByFacility(ctx context.Context, facilityID int64) ([]model.MaintenanceRecord, error)
	SaveMaintenance(ctx context.Context, record *model.MaintenanceRecord) error
	DeleteMaintenance(ctx context.Context, id int64) error

	LoadReservationsOverlapping(ctx context.Context, facilityID int64, w window.Window) ([]model.Reservation, error)
	SaveReservation(ctx context.Context, reservation *model.Reservation) error

	LoadObservation(ctx context.Context, id int64) (model.Observation, error)
	LoadObservationsByFacility(ctx context.Context, facilityID int64) ([]model.Observation, error)
	SaveObservation(ctx context.Context, observation *model.Observation) error

	SaveNotification(ctx context.Context, n *model.NotificationRequest) error

	LoadSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error)
	LoadSubscriptionsByUser(ctx context.Context, userID string) ([]model.PushSubscription, error)
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// Transaction runs fn against a Store bound to a single database transaction.
func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func notFound(err error, what string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %v", ErrNotFound, what, id)
	}
	return fmt.Errorf("failed to load %s %v: %w", what, id, err)
}

// --- Facilities ---

func (s *gormStore) LoadFacility(ctx context.Context, id int64) (model.Facility, error) {
	var facility model.Facility
	if err := s.db.WithContext(ctx).First(&facility, id).Error; err != nil {
		return model.Facility{}, notFound(err, "facility", id)
	}
	return facility, nil
}

func (s *gormStore) SaveFacility(ctx context.Context, facility *model.Facility) error {
	if err := s.db.WithContext(ctx).Save(facility).Error; err != nil {
		return fmt.Errorf("failed to save facility %d: %w", facility.ID, err)
	}
	return nil
}

func (s *gormStore) ListFacilities(ctx context.Context) ([]model.Facility, error) {
	var facilities []model.Facility
	if err := s.db.WithContext(ctx).Order("id").Find(&facilities).Error; err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}
	return facilities, nil
}

// UpsertFacilities inserts new facilities and refreshes name and location of known
// ones. Maintenance flags are owned by this service and are never overwritten.
func (s *gormStore) UpsertFacilities(ctx context.Context, facilities []model.Facility) error {
	if len(facilities) == 0 {
		return nil
	}
	log.Printf("Batch upserting %d facilities...", len(facilities))
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "location", "updated_at"}),
	}).Create(&facilities).Error
}

// --- Maintenance ---

func (s *gormStore) LoadMaintenance(ctx context.Context, id int64) (model.MaintenanceRecord, error) {
	var record model.MaintenanceRecord
	if err := s.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return model.MaintenanceRecord{}, notFound(err, "maintenance record", id)
	}
	return record, nil
}

func (s *gormStore) LoadMaintenanceByFacility(ctx context.Context, facilityID int64) ([]model.MaintenanceRecord, error) {
	var records []model.MaintenanceRecord
	if err := s.db.WithContext(ctx).
		Where("facility_id = ?", facilityID).
		Order("window_start").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load maintenance for facility %d: %w", facilityID, err)
	}
	return records, nil
}

func (s *gormStore) SaveMaintenance(ctx context.Context, record *model.MaintenanceRecord) error {
	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("failed to save maintenance record for facility %d: %w", record.FacilityID, err)
	}
	return nil
}

func (s *gormStore) DeleteMaintenance(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.MaintenanceRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete maintenance record %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: maintenance record %d", ErrNotFound, id)
	}
	return nil
}

// --- Reservations ---

// LoadReservationsOverlapping returns the pending and confirmed reservations of a
// facility whose window overlaps w. Overlap is evaluated with window.Overlaps so the
// half-open boundary rule is identical on every driver.
func (s *gormStore) LoadReservationsOverlapping(ctx context.Context, facilityID int64, w window.Window) ([]model.Reservation, error) {
	var candidates []model.Reservation
	if err := s.db.WithContext(ctx).
		Where("facility_id = ? AND state IN ?", facilityID,
			[]model.ReservationState{model.ReservationPending, model.ReservationConfirmed}).
		Order("window_start").
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to load reservations for facility %d: %w", facilityID, err)
	}

	overlapping := candidates[:0]
	for _, r := range candidates {
		if r.Window.Overlaps(w) {
			overlapping = append(overlapping, r)
		}
	}
	return overlapping, nil
}

func (s *gormStore) SaveReservation(ctx context.Context, reservation *model.Reservation) error {
	if err := s.db.WithContext(ctx).Save(reservation).Error; err != nil {
		return fmt.Errorf("failed to save reservation %d: %w", reservation.ID, err)
	}
	return nil
}

// --- Observations ---

func (s *gormStore) LoadObservation(ctx context.Context, id int64) (model.Observation, error) {
	var observation model.Observation
	if err := s.db.WithContext(ctx).First(&observation, id).Error; err != nil {
		return model.Observation{}, notFound(err, "observation", id)
	}
	return observation, nil
}

func (s *gormStore) LoadObservationsByFacility(ctx context.Context, facilityID int64) ([]model.Observation, error) {
	var observations []model.Observation
	if err := s.db.WithContext(ctx).
		Where("facility_id = ?", facilityID).
		Order("created_at DESC").
		Find(&observations).Error; err != nil {
		return nil, fmt.Errorf("failed to load observations for facility %d: %w", facilityID, err)
	}
	return observations, nil
}

func (s *gormStore) SaveObservation(ctx context.Context, observation *model.Observation) error {
	if err := s.db.WithContext(ctx).Save(observation).Error; err != nil {
		return fmt.Errorf("failed to save observation for facility %d: %w", observation.FacilityID, err)
	}
	return nil
}

// --- Notifications ---

func (s *gormStore) SaveNotification(ctx context.Context, n *model.NotificationRequest) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to save notification %s: %w", n.ID, err)
	}
	return nil
}

// --- Push subscriptions ---

func (s *gormStore) LoadSubscription(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return model.PushSubscription{}, notFound(err, "subscription", endpoint)
	}
	return sub, nil
}

func (s *gormStore) LoadSubscriptionsByUser(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscriptions for user %s: %w", userID, err)
	}
	return subs, nil
}

func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "user_id"}),
	}).Create(sub).Error
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription %s: %w", endpoint, err)
	}
	return nil
}
