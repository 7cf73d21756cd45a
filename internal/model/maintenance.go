package model

import (
	"time"

	"facility-maintenance-backend/internal/window"
)

// MaintenanceType classifies the upkeep work.
type MaintenanceType string

const (
	MaintenancePreventive  MaintenanceType = "preventive"
	MaintenanceCorrective  MaintenanceType = "corrective"
	MaintenanceImprovement MaintenanceType = "improvement"
)

// Valid reports whether t is one of the known types.
func (t MaintenanceType) Valid() bool {
	switch t {
	case MaintenancePreventive, MaintenanceCorrective, MaintenanceImprovement:
		return true
	}
	return false
}

// MaintenanceState is the lifecycle state of a maintenance record.
type MaintenanceState string

const (
	MaintenanceScheduled  MaintenanceState = "scheduled"
	MaintenanceInProgress MaintenanceState = "in_progress"
	MaintenanceCompleted  MaintenanceState = "completed"
	MaintenanceCancelled  MaintenanceState = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s MaintenanceState) Terminal() bool {
	return s == MaintenanceCompleted || s == MaintenanceCancelled
}

// Blocking reports whether the state occupies the facility's single maintenance slot.
func (s MaintenanceState) Blocking() bool {
	return s == MaintenanceScheduled || s == MaintenanceInProgress
}

// MaintenanceRecord is a maintenance window registered against a facility.
type MaintenanceRecord struct {
	ID                  int64            `gorm:"primaryKey" json:"id"`
	FacilityID          int64            `gorm:"index;not null" json:"facilityId"`
	Type                MaintenanceType  `gorm:"size:32;not null" json:"type"`
	Description         string           `gorm:"type:text" json:"description"`
	Window              window.Window    `gorm:"embedded;embeddedPrefix:window_" json:"window"`
	AffectsAvailability bool             `gorm:"not null" json:"affectsAvailability"`
	State               MaintenanceState `gorm:"size:32;index;not null" json:"state"`
	CreatedBy           string           `gorm:"size:128;not null" json:"createdBy"`
	CancelReason        string           `gorm:"type:text" json:"cancelReason,omitempty"`
	CancelledAt         *time.Time       `json:"cancelledAt,omitempty"`
	CreatedAt           time.Time        `gorm:"not null" json:"createdAt"`
	UpdatedAt           time.Time        `gorm:"not null" json:"updatedAt"`
}

// StateAt derives the time-driven state of the record at now. Cancelled always wins
// and Completed never goes back.
func (m MaintenanceRecord) StateAt(now time.Time) MaintenanceState {
	if m.State.Terminal() {
		return m.State
	}
	switch {
	case m.Window.EndsBy(now):
		return MaintenanceCompleted
	case m.Window.Contains(now):
		return MaintenanceInProgress
	default:
		return MaintenanceScheduled
	}
}
