package database

import (
	"fmt"
	"os"
	"path/filepath"

	"whatsapp-bulk-sender/internal/config"
	"whatsapp-bulk-sender/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenGorm connects to the SQL backend selected by cfg.StoreDriver and runs
// the auto migration for the contact and settings tables.
func OpenGorm(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dialector = sqlite.Open(cfg.DBPath)
	case config.DriverPostgres:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("store driver %q has no SQL backend", cfg.StoreDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.StoreDriver, err)
	}
	logrus.WithField("driver", cfg.StoreDriver).Info("Connected to database")

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the tables used by the SQL store.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Contact{}, &models.Settings{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	logrus.Debug("Database migration completed")
	return nil
}
