package model

import "time"

// Priority is the urgency a field coordinator assigns to an observation.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ObservationState is the review lifecycle of an observation.
type ObservationState string

const (
	ObservationPending   ObservationState = "pending"
	ObservationInProcess ObservationState = "in_process"
	ObservationResolved  ObservationState = "resolved"
	ObservationCancelled ObservationState = "cancelled"
)

func (s ObservationState) Terminal() bool {
	return s == ObservationResolved || s == ObservationCancelled
}

// Observation is an issue report about a facility raised from the field.
type Observation struct {
	ID            int64            `gorm:"primaryKey" json:"id"`
	FacilityID    int64            `gorm:"index;not null" json:"facilityId"`
	Title         string           `gorm:"size:256;not null" json:"title"`
	Description   string           `gorm:"type:text" json:"description"`
	Priority      Priority         `gorm:"size:16;not null" json:"priority"`
	State         ObservationState `gorm:"size:32;index;not null" json:"state"`
	ReporterID    string           `gorm:"size:128;not null" json:"reporterId"`
	Location      string           `gorm:"size:512" json:"location"`
	Photos        []string         `gorm:"serializer:json;type:text" json:"photos"`
	ReviewerID    string           `gorm:"size:128" json:"reviewerId,omitempty"`
	ReviewComment string           `gorm:"type:text" json:"reviewComment,omitempty"`
	ReviewedAt    *time.Time       `json:"reviewedAt,omitempty"`
	ResolvedAt    *time.Time       `json:"resolvedAt,omitempty"`
	CreatedAt     time.Time        `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time        `gorm:"not null" json:"updatedAt"`
}
