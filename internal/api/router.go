package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"facility-maintenance-backend/config"
	"facility-maintenance-backend/internal/mw"
	"facility-maintenance-backend/internal/scheduling"
	"facility-maintenance-backend/internal/store"
)

// NewRouter creates and configures a new Gin router. gatherer may be nil to
// disable the /metrics endpoint.
func NewRouter(f *scheduling.Facade, s store.Store, webpushOptions *webpush.Options, cfg config.ServerConfig, gatherer prometheus.Gatherer) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(f, s, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Listings are cached briefly; any successful write drops the whole cache
	// because one schedule can change several facilities' listings.
	var caching, invalidate gin.HandlerFunc = passThrough, passThrough
	if cfg.CacheTTLSeconds > 0 {
		ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
		cacheStore := cache.New(ttl, 2*ttl)
		caching = mw.Cache(cacheStore, ttl)
		invalidate = mw.Invalidate(cacheStore)
	}

	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.Use(rateLimiter, invalidate)
	{
		api.GET("/facilities", caching, handler.GetFacilities)
		api.GET("/facilities/:id/maintenance", caching, handler.GetFacilityMaintenance)
		api.GET("/facilities/:id/observations", caching, handler.GetFacilityObservations)

		api.POST("/maintenance", handler.CreateMaintenance)
		api.PUT("/maintenance/:id", handler.UpdateMaintenance)
		api.POST("/maintenance/:id/cancel", handler.CancelMaintenance)
		api.DELETE("/maintenance/:id", handler.DeleteMaintenance)

		api.POST("/observations", handler.SubmitObservation)
		api.POST("/observations/:id/review", handler.ReviewObservation)
		api.POST("/observations/:id/resolve", handler.ResolveObservation)
		api.POST("/observations/:id/cancel", handler.CancelObservation)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}

func passThrough(c *gin.Context) { c.Next() }
