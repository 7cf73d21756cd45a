package model

import "time"

// PushSubscription holds a browser push endpoint registered by a user.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	UserID    string    `gorm:"size:128;index;not null"`
	CreatedAt time.Time `gorm:"not null"`
}
