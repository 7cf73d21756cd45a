package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"facility-maintenance-backend/internal/model"
	"facility-maintenance-backend/internal/parse"
)

// GetFacilities handles the GET /api/facilities request.
func (h *Handler) GetFacilities(c *gin.Context) {
	facilities, err := h.facade.Facilities(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve facilities"})
		return
	}
	c.JSON(http.StatusOK, facilities)
}

// GetFacilityMaintenance handles the GET /api/facilities/{id}/maintenance request.
// An optional ?state= accepts legacy labels such as "programado" or "en-progreso".
func (h *Handler) GetFacilityMaintenance(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var want model.MaintenanceState
	if raw := c.Query("state"); raw != "" {
		state, err := parse.MaintenanceState(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		want = state
	}

	records, err := h.facade.FacilityMaintenance(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if want != "" {
		filtered := make([]model.MaintenanceRecord, 0, len(records))
		for _, r := range records {
			if r.State == want {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}
	c.JSON(http.StatusOK, records)
}

// GetFacilityObservations handles the GET /api/facilities/{id}/observations request.
func (h *Handler) GetFacilityObservations(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var want model.ObservationState
	if raw := c.Query("state"); raw != "" {
		state, err := parse.ObservationState(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		want = state
	}

	observations, err := h.facade.FacilityObservations(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if want != "" {
		filtered := make([]model.Observation, 0, len(observations))
		for _, o := range observations {
			if o.State == want {
				filtered = append(filtered, o)
			}
		}
		observations = filtered
	}
	c.JSON(http.StatusOK, observations)
}
