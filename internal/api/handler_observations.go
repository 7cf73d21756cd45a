package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"facility-maintenance-backend/internal/scheduling"
)

// SubmitObservation handles POST /api/observations.
func (h *Handler) SubmitObservation(c *gin.Context) {
	var req scheduling.SubmitObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	obs, err := h.facade.SubmitObservation(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, obs)
}

// ReviewObservation handles POST /api/observations/{id}/review.
func (h *Handler) ReviewObservation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req scheduling.ReviewObservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	obs, err := h.facade.ReviewObservation(c.Request.Context(), id, req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, obs)
}

// ResolveObservation handles POST /api/observations/{id}/resolve.
func (h *Handler) ResolveObservation(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	obs, err := h.facade.ResolveObservation(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, obs)
}

// CancelObservation handles POST /api/observations/{id}/cancel.
func (h *Handler) CancelObservation(c *gin.Context) {
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

	obs, err := h.facade.CancelObservation(c.Request.Context(), id, req.Reason)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, obs)
}
