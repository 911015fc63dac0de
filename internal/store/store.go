// Package store keeps the local contact list and the sender settings.
//
// Two backends implement the same contract: a JSON file pair
// (contacts.json, config.json) rewritten in full on every mutation, and a
// gorm backed SQL store for sqlite or postgres.
package store

import (
	"context"
	"fmt"

	"whatsapp-bulk-sender/internal/config"
	"whatsapp-bulk-sender/internal/database"
	"whatsapp-bulk-sender/internal/models"
)

// DeleteResult reports the outcome of a Delete call.
type DeleteResult struct {
	Deleted   int `json:"deletedCount"`
	Remaining int `json:"remainingCount"`
}

// ImportResult reports the outcome of an Import call.
type ImportResult struct {
	Imported   []models.Contact `json:"contacts"`
	Duplicates int              `json:"duplicates"`
	Total      int              `json:"total"`
}

type ContactStore interface {
	List(ctx context.Context) ([]models.Contact, error)
	Add(ctx context.Context, name, phone string) (models.Contact, error)
	Delete(ctx context.Context, ids []string) (DeleteResult, error)
	Import(ctx context.Context, rows []map[string]string) (ImportResult, error)
}

type SettingsStore interface {
	LoadSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, settings models.Settings) error
}

// Store is implemented by every backend.
type Store interface {
	ContactStore
	SettingsStore
	Close() error
}

// Open returns the backend selected by cfg.StoreDriver.
func Open(cfg *config.Config) (Store, error) {
	switch cfg.StoreDriver {
	case config.DriverJSON, "":
		return NewJSONStore(cfg.DataDir)
	case config.DriverSQLite, config.DriverPostgres:
		db, err := database.OpenGorm(cfg)
		if err != nil {
			return nil, err
		}
		return NewGormStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// FilterByIDs returns the contacts whose id is in ids, keeping list order.
func FilterByIDs(contacts []models.Contact, ids []string) []models.Contact {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	selected := make([]models.Contact, 0, len(ids))
	for _, c := range contacts {
		if _, ok := wanted[c.ID]; ok {
			selected = append(selected, c)
		}
	}
	return selected
}
