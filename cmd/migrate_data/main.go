package main

import (
	"context"

	"whatsapp-bulk-sender/internal/config"
	"whatsapp-bulk-sender/internal/database"
	"whatsapp-bulk-sender/internal/models"
	"whatsapp-bulk-sender/internal/store"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// migrate_data copies contacts.json and config.json from DATA_DIR into the
// SQL backend named by STORE_DRIVER (sqlite when unset or json). Contacts
// already present in the destination are left untouched.
func main() {
	cfg := config.LoadConfig()
	if cfg.StoreDriver == config.DriverJSON || cfg.StoreDriver == "" {
		cfg.StoreDriver = config.DriverSQLite
	}
	ctx := context.Background()

	source, err := store.NewJSONStore(cfg.DataDir)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open JSON store")
	}
	contacts, err := source.List(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to read contacts")
	}
	settings, err := source.LoadSettings(ctx)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to read settings")
	}
	logrus.WithFields(logrus.Fields{"dir": cfg.DataDir, "contacts": len(contacts)}).Info("Loaded JSON store")

	db, err := database.OpenGorm(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open destination database")
	}

	var inserted int64
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&models.Contact{}).Select("COALESCE(MAX(seq), 0)").Scan(&maxSeq).Error; err != nil {
			return err
		}
		for i := range contacts {
			contacts[i].Seq = maxSeq + int64(i) + 1
		}
		if len(contacts) > 0 {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(contacts, 100)
			if res.Error != nil {
				return res.Error
			}
			inserted = res.RowsAffected
		}
		return nil
	})
	if err != nil {
		logrus.WithError(err).Fatal("Migration failed")
	}

	destination := store.NewGormStore(db)
	defer destination.Close()
	if err := destination.SaveSettings(ctx, settings); err != nil {
		logrus.WithError(err).Fatal("Failed to save settings")
	}

	logrus.WithFields(logrus.Fields{
		"driver":       cfg.StoreDriver,
		"inserted":     inserted,
		"skipped":      int64(len(contacts)) - inserted,
		"messageDelay": settings.MessageDelay,
	}).Info("Migration completed")
}
