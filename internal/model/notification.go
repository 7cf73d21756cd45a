package model

import "time"

// NotificationCategory tells clients how to present a notification.
type NotificationCategory string

const (
	CategoryReservationCancelled NotificationCategory = "reservation_cancelled"
	CategoryMaintenanceScheduled NotificationCategory = "maintenance_scheduled"
	CategoryMaintenanceCancelled NotificationCategory = "maintenance_cancelled"
	CategoryObservationApproved  NotificationCategory = "observation_approved"
	CategoryObservationRejected  NotificationCategory = "observation_rejected"
	CategoryObservationResolved  NotificationCategory = "observation_resolved"
	CategoryObservationCancelled NotificationCategory = "observation_cancelled"
)

// NotificationRequest is produced by the workflows and handed to a sink. It is
// never mutated after creation. An empty RecipientID addresses the facility as a whole.
type NotificationRequest struct {
	ID               string               `gorm:"primaryKey;size:36" json:"id"`
	Title            string               `gorm:"size:256;not null" json:"title"`
	Message          string               `gorm:"type:text;not null" json:"message"`
	Category         NotificationCategory `gorm:"size:64;index;not null" json:"category"`
	TargetFacilityID int64                `gorm:"index;not null" json:"targetFacilityId"`
	RecipientID      string               `gorm:"size:128;index" json:"recipientId,omitempty"`
	Timestamp        time.Time            `gorm:"not null" json:"timestamp"`
}
