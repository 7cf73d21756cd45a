package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// ScheduleMaintenanceRequest is the boundary shape of a schedule request.
type ScheduleMaintenanceRequest struct {
	FacilityID          int64     `json:"facilityId" binding:"required"`
	Type                string    `json:"type" binding:"required"`
	Description         string    `json:"description"`
	WindowStart         time.Time `json:"windowStart" binding:"required"`
	WindowEnd           time.Time `json:"windowEnd" binding:"required"`
	AffectsAvailability bool      `json:"affectsAvailability"`
	CreatedBy           string    `json:"createdBy" binding:"required"`
}

// UpdateMaintenanceRequest changes only the fields that are set. WindowStart and
// WindowEnd must be given together.
type UpdateMaintenanceRequest struct {
	Type                *string    `json:"type"`
	Description         *string    `json:"description"`
	WindowStart         *time.Time `json:"windowStart"`
	WindowEnd           *time.Time `json:"windowEnd"`
	AffectsAvailability *bool      `json:"affectsAvailability"`
}

type SubmitObservationRequest struct {
	FacilityID  int64    `json:"facilityId" binding:"required"`
	ReporterID  string   `json:"reporterId" binding:"required"`
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Location    string   `json:"location"`
	Photos      []string `json:"photos"`
}

// Decision is the outcome of an observation review.
type Decision string

const (
	Approve Decision = "approve"
	Reject  Decision = "reject"
)

// ParseDecision accepts the English and Spanish spellings used by clients.
func ParseDecision(raw string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approve", "approved", "aprobar", "aprobada":
		return Approve, nil
	case "reject", "rejected", "rechazar", "rechazada":
		return Reject, nil
	}
	return "", fmt.Errorf("unknown decision %q", raw)
}

type ReviewObservationRequest struct {
	Decision   string `json:"decision" binding:"required"`
	ReviewerID string `json:"reviewerId" binding:"required"`
	Comment    string `json:"comment"`
}
