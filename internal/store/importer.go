package store

import (
	"strings"
	"time"

	"whatsapp-bulk-sender/internal/models"
)

// Column names looked up, in order, when importing a spreadsheet row.
var (
	nameColumns  = []string{"nombre", "name", "Name", "NOMBRE"}
	phoneColumns = []string{"telefono", "phone", "numero", "celular", "Phone", "TELEFONO", "NUMERO", "CELULAR"}
)

func normalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}

// ResolveRow extracts the contact name and phone from an imported row.
// An empty phone means the row must be skipped.
func ResolveRow(row map[string]string) (name, phone string) {
	return firstValue(row, nameColumns), normalizePhone(firstValue(row, phoneColumns))
}

func firstValue(row map[string]string, columns []string) string {
	for _, col := range columns {
		if v := strings.TrimSpace(row[col]); v != "" {
			return v
		}
	}
	return ""
}

// planImport builds the contacts to append for rows, skipping phones already
// present in existing or earlier in the same batch.
func planImport(existing []models.Contact, rows []map[string]string, ids *idSource, now time.Time) ([]models.Contact, int) {
	seen := make(map[string]struct{}, len(existing)+len(rows))
	for _, c := range existing {
		seen[normalizePhone(c.Phone)] = struct{}{}
	}

	var added []models.Contact
	duplicates := 0
	for _, row := range rows {
		name, phone := ResolveRow(row)
		if phone == "" {
			continue
		}
		if _, dup := seen[phone]; dup {
			duplicates++
			continue
		}
		seen[phone] = struct{}{}
		if name == "" {
			name = models.UnnamedContact
		}
		added = append(added, models.Contact{
			ID:        ids.nextWithSuffix(),
			Name:      name,
			Phone:     phone,
			AddedDate: now,
			Source:    models.SourceImport,
		})
	}
	return added, duplicates
}

func newManualContact(ids *idSource, name, phone string, now time.Time) (models.Contact, error) {
	name = strings.TrimSpace(name)
	phone = normalizePhone(phone)
	if name == "" || phone == "" {
		return models.Contact{}, ErrInvalidContact
	}
	return models.Contact{
		ID:        ids.next(),
		Name:      name,
		Phone:     phone,
		AddedDate: now,
		Source:    models.SourceManual,
	}, nil
}

func hasPhone(contacts []models.Contact, phone string) bool {
	for _, c := range contacts {
		if normalizePhone(c.Phone) == phone {
			return true
		}
	}
	return false
}
