package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"facility-maintenance-backend/config"
	"facility-maintenance-backend/internal/api"
	"facility-maintenance-backend/internal/cascade"
	"facility-maintenance-backend/internal/clock"
	"facility-maintenance-backend/internal/db"
	"facility-maintenance-backend/internal/facilitylock"
	"facility-maintenance-backend/internal/facilitysync"
	"facility-maintenance-backend/internal/maintenance"
	"facility-maintenance-backend/internal/metrics"
	"facility-maintenance-backend/internal/notification"
	"facility-maintenance-backend/internal/observation"
	"facility-maintenance-backend/internal/scheduling"
	"facility-maintenance-backend/internal/store"
)

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, notification workers and facility sync",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Println("VAPID keys are not configured; notifications will be stored but not pushed")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	var (
		sink notification.Sink
		pool *notification.WorkerPool
	)
	switch cfg.Notification.Backend {
	case "nats":
		natsSink, err := notification.NewNATSSink(cfg.Notification.NATS)
		if err != nil {
			return fmt.Errorf("failed to connect notification sink: %w", err)
		}
		defer natsSink.Close()
		sink = natsSink
		logger.Printf("notifications published to NATS subject %s", cfg.Notification.NATS.Subject)
	default:
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, appStore, webpushOptions)
		pool.Start(ctx)
		sink = pool
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	locks := facilitylock.New()
	clk := clock.Real{}
	loc := cfg.Scheduling.Location
	registry := maintenance.NewRegistry(appStore, locks, clk, cascade.New(loc), loc)
	facade := scheduling.NewFacade(scheduling.Deps{
		Store:    appStore,
		Registry: registry,
		Workflow: observation.NewWorkflow(appStore, locks, clk, registry),
		Sink:     sink,
		Metrics:  metrics.New(reg),
		Clock:    clk,
	})

	syncSvc := facilitysync.NewService(cfg.FacilitySync, appStore)
	go syncSvc.Run(ctx)

	router := api.NewRouter(facade, appStore, webpushOptions, cfg.Server, reg)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	cancel()
	if pool != nil {
		pool.Wait()
	}

	logger.Println("Server gracefully stopped")
	return nil
}
