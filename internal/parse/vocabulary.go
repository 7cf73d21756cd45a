package parse

import (
	"fmt"
	"regexp"
	"strings"

	"facility-maintenance-backend/internal/model"
)

// Clients and older records use Spanish and English spellings, with dashes,
// underscores or spaces. Everything is folded to a single key before lookup.
var (
	separatorRe = regexp.MustCompile(`[\s_\-]+`)
	accents     = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n")
)

func normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = accents.Replace(s)
	return separatorRe.ReplaceAllString(s, "_")
}

var maintenanceTypes = map[string]model.MaintenanceType{
	"preventive":   model.MaintenancePreventive,
	"preventivo":   model.MaintenancePreventive,
	"preventiva":   model.MaintenancePreventive,
	"corrective":   model.MaintenanceCorrective,
	"correctivo":   model.MaintenanceCorrective,
	"correctiva":   model.MaintenanceCorrective,
	"improvement":  model.MaintenanceImprovement,
	"mejora":       model.MaintenanceImprovement,
	"mejoramiento": model.MaintenanceImprovement,
}

var maintenanceStates = map[string]model.MaintenanceState{
	"scheduled":   model.MaintenanceScheduled,
	"programado":  model.MaintenanceScheduled,
	"programada":  model.MaintenanceScheduled,
	"in_progress": model.MaintenanceInProgress,
	"en_progreso": model.MaintenanceInProgress,
	"en_curso":    model.MaintenanceInProgress,
	"completed":   model.MaintenanceCompleted,
	"completado":  model.MaintenanceCompleted,
	"completada":  model.MaintenanceCompleted,
	"finalizado":  model.MaintenanceCompleted,
	"cancelled":   model.MaintenanceCancelled,
	"canceled":    model.MaintenanceCancelled,
	"cancelado":   model.MaintenanceCancelled,
	"cancelada":   model.MaintenanceCancelled,
}

var priorities = map[string]model.Priority{
	"low":    model.PriorityLow,
	"baja":   model.PriorityLow,
	"medium": model.PriorityMedium,
	"media":  model.PriorityMedium,
	"high":   model.PriorityHigh,
	"alta":   model.PriorityHigh,
}

var observationStates = map[string]model.ObservationState{
	"pending":    model.ObservationPending,
	"pendiente":  model.ObservationPending,
	"in_process": model.ObservationInProcess,
	"en_proceso": model.ObservationInProcess,
	"aprobada":   model.ObservationInProcess,
	"resolved":   model.ObservationResolved,
	"resuelta":   model.ObservationResolved,
	"resuelto":   model.ObservationResolved,
	"cancelled":  model.ObservationCancelled,
	"canceled":   model.ObservationCancelled,
	"cancelada":  model.ObservationCancelled,
	"rechazada":  model.ObservationCancelled,
}

// MaintenanceType maps a raw type label onto the closed enumeration.
func MaintenanceType(raw string) (model.MaintenanceType, error) {
	if t, ok := maintenanceTypes[normalize(raw)]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown maintenance type: %q", raw)
}

// MaintenanceState maps a stored or client-supplied status label (e.g. "en-progreso").
func MaintenanceState(raw string) (model.MaintenanceState, error) {
	if s, ok := maintenanceStates[normalize(raw)]; ok {
		return s, nil
	}
	return "", fmt.Errorf("unknown maintenance state: %q", raw)
}

// Priority maps a raw priority label. An empty label defaults to medium.
func Priority(raw string) (model.Priority, error) {
	if strings.TrimSpace(raw) == "" {
		return model.PriorityMedium, nil
	}
	if p, ok := priorities[normalize(raw)]; ok {
		return p, nil
	}
	return "", fmt.Errorf("unknown priority: %q", raw)
}

func ObservationState(raw string) (model.ObservationState, error) {
	if s, ok := observationStates[normalize(raw)]; ok {
		return s, nil
	}
	return "", fmt.Errorf("unknown observation state: %q", raw)
}
