package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"facility-maintenance-backend/internal/scheduling"
)

type reasonRequest struct {
	Reason string `json:"reason"`
}

// CreateMaintenance handles POST /api/maintenance.
func (h *Handler) CreateMaintenance(c *gin.Context) {
	var req scheduling.ScheduleMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.facade.ScheduleMaintenance(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// UpdateMaintenance handles PUT /api/maintenance/{id}.
func (h *Handler) UpdateMaintenance(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req scheduling.UpdateMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.facade.UpdateMaintenance(c.Request.Context(), id, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// CancelMaintenance handles POST /api/maintenance/{id}/cancel. The body is optional.
func (h *Handler) CancelMaintenance(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req reasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	record, err := h.facade.CancelMaintenance(c.Request.Context(), id, req.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// DeleteMaintenance handles DELETE /api/maintenance/{id}.
func (h *Handler) DeleteMaintenance(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.facade.DeleteMaintenance(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
