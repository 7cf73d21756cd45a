package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"facility-maintenance-backend/internal/cascade"
	"facility-maintenance-backend/internal/maintenance"
	"facility-maintenance-backend/internal/observation"
	"facility-maintenance-backend/internal/scheduling"
	"facility-maintenance-backend/internal/store"
	"facility-maintenance-backend/internal/window"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	facade  *scheduling.Facade
	store   store.Store
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(f *scheduling.Facade, s store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		facade:  f,
		store:   s,
		webpush: webpushOptions,
	}
}

func idParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return id, true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, window.ErrInvalidWindow),
		errors.Is(err, maintenance.ErrInvalidRequest),
		errors.Is(err, observation.ErrInvalidObservation):
		return http.StatusBadRequest
	case errors.Is(err, cascade.ErrCascadeFailed):
		return http.StatusInternalServerError
	case scheduling.IsRejection(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	var conflict *maintenance.ConflictError
	if errors.As(err, &conflict) {
		body["conflictingRecordId"] = conflict.Existing.ID
	}
	c.AbortWithStatusJSON(statusFor(err), body)
}
