package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"facility-maintenance-backend/config"
	"facility-maintenance-backend/internal/model"
)

// Open connects to the configured database without migrating it.
func Open(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		dialector = postgres.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	return db, nil
}

// Init connects to the database and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, cfg); err != nil {
		return nil, err
	}
	log.Println("Database initialization complete.")
	return db, nil
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB, cfg *config.DatabaseConfig) error {
	log.Println("Running database migrations...")
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	if cfg.EnableConstraints && cfg.Driver == "postgres" {
		log.Println("Constraints are enabled, applying PostgreSQL-specific DDL...")
		if err := applyConstraintDDL(db); err != nil {
			log.Printf("Warning: failed to apply some constraint DDL: %v. Continuing without them.", err)
		}
	}
	return nil
}

func applyConstraintDDL(db *gorm.DB) error {
	ddls := []string{
		// At most one scheduled or in-progress record per facility.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_maintenance_one_blocking_per_facility " +
			"ON maintenance_records (facility_id) WHERE state IN ('scheduled', 'in_progress');",

		"ALTER TABLE maintenance_records " +
			"ADD CONSTRAINT maintenance_records_window_valid CHECK (window_start < window_end);",

		"CREATE INDEX IF NOT EXISTS idx_reservations_facility_window " +
			"ON reservations (facility_id, window_start, window_end) WHERE state IN ('pending', 'confirmed');",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
