package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"facility-maintenance-backend/internal/model"
)

func TestMaintenanceState(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  model.MaintenanceState
		expectErr bool
	}{
		{name: "Spanish scheduled", raw: "programado", expected: model.MaintenanceScheduled},
		{name: "Dashed in progress", raw: "en-progreso", expected: model.MaintenanceInProgress},
		{name: "Spaced in progress", raw: "En  Progreso", expected: model.MaintenanceInProgress},
		{name: "English in progress", raw: "in-progress", expected: model.MaintenanceInProgress},
		{name: "American spelling", raw: "canceled", expected: model.MaintenanceCancelled},
		{name: "Padded", raw: "  Completado ", expected: model.MaintenanceCompleted},
		{name: "Unknown", raw: "paused", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			state, err := MaintenanceState(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, state)
		})
	}
}

func TestMaintenanceType(t *testing.T) {
	typ, err := MaintenanceType("Preventivo")
	assert.NoError(t, err)
	assert.Equal(t, model.MaintenancePreventive, typ)

	typ, err = MaintenanceType("mejora")
	assert.NoError(t, err)
	assert.Equal(t, model.MaintenanceImprovement, typ)

	_, err = MaintenanceType("repaint")
	assert.Error(t, err)
}

func TestPriority(t *testing.T) {
	p, err := Priority("")
	assert.NoError(t, err)
	assert.Equal(t, model.PriorityMedium, p)

	p, err = Priority("ALTA")
	assert.NoError(t, err)
	assert.Equal(t, model.PriorityHigh, p)

	_, err = Priority("urgent")
	assert.Error(t, err)
}

func TestObservationState(t *testing.T) {
	s, err := ObservationState("en_proceso")
	assert.NoError(t, err)
	assert.Equal(t, model.ObservationInProcess, s)

	s, err = ObservationState("Rechazada")
	assert.NoError(t, err)
	assert.Equal(t, model.ObservationCancelled, s)
}
