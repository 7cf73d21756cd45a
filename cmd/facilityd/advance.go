package main

import (
	"time"

	"github.com/spf13/cobra"

	"facility-maintenance-backend/config"
	"facility-maintenance-backend/internal/cascade"
	"facility-maintenance-backend/internal/clock"
	"facility-maintenance-backend/internal/db"
	"facility-maintenance-backend/internal/facilitylock"
	"facility-maintenance-backend/internal/maintenance"
	"facility-maintenance-backend/internal/store"
)

func newAdvanceCmd(load func() (*config.Config, error)) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Bring every facility's maintenance state and availability up to date",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			if at != "" {
				if now, err = time.Parse(time.RFC3339, at); err != nil {
					return err
				}
			}

			gormDB, err := db.Open(&cfg.Database)
			if err != nil {
				return err
			}
			appStore := store.NewGormStore(gormDB)
			loc := cfg.Scheduling.Location
			registry := maintenance.NewRegistry(appStore, facilitylock.New(), clock.Real{}, cascade.New(loc), loc)

			n, err := registry.AdvanceAll(cmd.Context(), now)
			if err != nil {
				return err
			}
			logger.Printf("advanced %d facilities to %s", n, now.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "RFC3339 instant to advance to (default now)")
	return cmd
}
