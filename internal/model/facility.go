package model

import "time"

// Availability is the bookable state of a facility.
type Availability string

const (
	AvailabilityAvailable        Availability = "available"
	AvailabilityUnderMaintenance Availability = "under_maintenance"
)

// Facility represents a bookable municipal sports resource (pool, field, gym...).
// Its lifecycle is owned by the facility catalogue; this service only flips
// Availability and RequiresMaintenance.
type Facility struct {
	ID                  int64        `gorm:"primaryKey" json:"id"`
	Name                string       `gorm:"size:256;not null" json:"name"`
	Location            string       `gorm:"size:512" json:"location"`
	RequiresMaintenance bool         `gorm:"not null;default:false" json:"requiresMaintenance"`
	Availability        Availability `gorm:"size:32;not null;default:available" json:"availability"`
	CreatedAt           time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt           time.Time    `gorm:"not null" json:"updatedAt"`
}
