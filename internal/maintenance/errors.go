package maintenance

import (
	"errors"
	"fmt"

	"facility-maintenance-backend/internal/model"
)

var (
	// ErrConflictingMaintenance is matched by every *ConflictError.
	ErrConflictingMaintenance = errors.New("conflicting maintenance")
	// ErrRecordTerminal is returned when a completed or cancelled record is modified.
	ErrRecordTerminal = errors.New("maintenance record is completed or cancelled")
	// ErrRecordNotTerminal is returned when deleting a record that is still scheduled or in progress.
	ErrRecordNotTerminal = errors.New("maintenance record is still scheduled or in progress")
	// ErrInvalidRequest is returned for malformed schedule or update parameters.
	ErrInvalidRequest = errors.New("invalid maintenance request")
)

// ConflictError names the record that already holds the facility's maintenance slot.
type ConflictError struct {
	FacilityID int64
	Existing   model.MaintenanceRecord
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("facility %d already has %s maintenance %d for %s",
		e.FacilityID, e.Existing.State, e.Existing.ID, e.Existing.Window)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflictingMaintenance
}
