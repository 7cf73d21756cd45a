package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"facility-maintenance-backend/internal/model"
)

// ErrTransientFailure is returned by a Sink that could not accept a request right now.
// Callers treat it as non-fatal.
var ErrTransientFailure = errors.New("notification sink unavailable")

// Sink receives notification requests produced by the scheduling workflows.
// Enqueue must not block on delivery.
type Sink interface {
	Enqueue(ctx context.Context, n model.NotificationRequest) error
}

// NewRequest builds an immutable notification request with a fresh id.
func NewRequest(category model.NotificationCategory, facilityID int64, recipientID, title, message string, at time.Time) model.NotificationRequest {
	return model.NotificationRequest{
		ID:               uuid.NewString(),
		Title:            title,
		Message:          message,
		Category:         category,
		TargetFacilityID: facilityID,
		RecipientID:      recipientID,
		Timestamp:        at.UTC(),
	}
}

// Discard is a Sink that drops every request.
type Discard struct{}

func (Discard) Enqueue(context.Context, model.NotificationRequest) error { return nil }
