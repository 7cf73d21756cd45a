package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server" toml:"server"`
	Database     DatabaseConfig     `yaml:"database" toml:"database"`
	Push         PushConfig         `yaml:"push" toml:"push"`
	WorkerPool   WorkerPoolConfig   `yaml:"worker_pool" toml:"worker_pool"`
	Notification NotificationConfig `yaml:"notification" toml:"notification"`
	Scheduling   SchedulingConfig   `yaml:"scheduling" toml:"scheduling"`
	FacilitySync FacilitySyncConfig `yaml:"facility_sync" toml:"facility_sync"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size" toml:"size"`
	QueueSize int `yaml:"queue_size" toml:"queue_size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key" toml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key" toml:"vapid_private_key"`
	Subject    string `yaml:"subject" toml:"subject"`
	TTL        int    `yaml:"ttl" toml:"ttl"`
}

// NotificationConfig selects where notification requests are handed off.
type NotificationConfig struct {
	// Backend is "worker" (in-process pool with web push) or "nats".
	Backend string     `yaml:"backend" toml:"backend"`
	NATS    NATSConfig `yaml:"nats" toml:"nats"`
}

// NATSConfig configures the JetStream notification sink.
type NATSConfig struct {
	URL     string `yaml:"url" toml:"url"`
	Stream  string `yaml:"stream" toml:"stream"`
	Subject string `yaml:"subject" toml:"subject"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" toml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" toml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst" toml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds" toml:"cache_ttl_seconds"`
}

// SchedulingConfig holds presentation settings for scheduling messages.
type SchedulingConfig struct {
	Timezone string         `yaml:"timezone" toml:"timezone"`
	Location *time.Location `yaml:"-" toml:"-"`
}

// FacilitySyncConfig configures the import of the facility catalogue.
type FacilitySyncConfig struct {
	Enabled         bool              `yaml:"enabled" toml:"enabled"`
	IntervalSeconds int               `yaml:"interval_seconds" toml:"interval_seconds"`
	Interval        time.Duration     `yaml:"-" toml:"-"`
	HTTPProxy       string            `yaml:"http_proxy" toml:"http_proxy"`
	URL             string            `yaml:"url" toml:"url"`
	Headers         map[string]string `yaml:"headers" toml:"headers"`
	PageSize        int               `yaml:"page_size" toml:"page_size"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" toml:"driver"`
	DSN                    string `yaml:"dsn" toml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns" toml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns" toml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" toml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level" toml:"log_level"`
	// EnableConstraints adds PostgreSQL-only indexes that back the
	// one-active-maintenance-per-facility rule across processes.
	EnableConstraints bool `yaml:"enable_constraints" toml:"enable_constraints"`
}

// Load reads the configuration from the given path. Files ending in .toml are
// decoded as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, err
		}
	} else {
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds < 0 {
		cfg.Server.CacheTTLSeconds = 0
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}

	switch cfg.Notification.Backend {
	case "":
		cfg.Notification.Backend = "worker"
	case "worker", "nats":
	default:
		return fmt.Errorf("unsupported notification backend %q", cfg.Notification.Backend)
	}
	if cfg.Notification.NATS.URL == "" {
		cfg.Notification.NATS.URL = "nats://127.0.0.1:4222"
	}
	if cfg.Notification.NATS.Stream == "" {
		cfg.Notification.NATS.Stream = "FACILITY_NOTIFICATIONS"
	}
	if cfg.Notification.NATS.Subject == "" {
		cfg.Notification.NATS.Subject = "facility.notifications"
	}

	if cfg.Scheduling.Timezone == "" {
		cfg.Scheduling.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(cfg.Scheduling.Timezone)
	if err != nil {
		return fmt.Errorf("failed to load timezone %q: %w", cfg.Scheduling.Timezone, err)
	}
	cfg.Scheduling.Location = loc

	if cfg.FacilitySync.IntervalSeconds <= 0 {
		cfg.FacilitySync.IntervalSeconds = 3600
	}
	cfg.FacilitySync.Interval = time.Duration(cfg.FacilitySync.IntervalSeconds) * time.Second
	if cfg.FacilitySync.PageSize <= 0 {
		cfg.FacilitySync.PageSize = 100
	}
	return nil
}
