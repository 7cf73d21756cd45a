package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"facility-maintenance-backend/config"
)

var logger = log.New(os.Stdout, "facilityd ", log.LstdFlags)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "facilityd",
		Short:         "Facility maintenance scheduling backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML or TOML config file (default $CONFIG_PATH or ./config/config.yaml)")

	load := func() (*config.Config, error) {
		path := configPath
		if path == "" {
			path = os.Getenv("CONFIG_PATH")
		}
		if path == "" {
			path = "./config/config.yaml"
		}
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		logger.Printf("configuration loaded successfully from %s", path)
		return cfg, nil
	}

	root.AddCommand(newServeCmd(load), newMigrateCmd(load), newAdvanceCmd(load))
	return root
}
