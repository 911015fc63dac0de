package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"whatsapp-bulk-sender/internal/models"

	"github.com/google/renameio/v2/maybe"
	"github.com/sirupsen/logrus"
)

const (
	contactsFile = "contacts.json"
	settingsFile = "config.json"
)

// JSONStore keeps contacts and settings as two JSON files in one directory.
// Every mutation rewrites the whole file atomically, so readers never
// observe a partial write.
type JSONStore struct {
	contactsPath string
	settingsPath string
	ids          *idSource
	now          func() time.Time
	mu           sync.Mutex
}

func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir %s: %v", ErrIO, dir, err)
	}
	return &JSONStore{
		contactsPath: filepath.Join(dir, contactsFile),
		settingsPath: filepath.Join(dir, settingsFile),
		ids:          newIDSource(),
		now:          time.Now,
	}, nil
}

func (s *JSONStore) List(ctx context.Context) ([]models.Contact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadContactsLocked()
}

func (s *JSONStore) Add(ctx context.Context, name, phone string) (models.Contact, error) {
	if err := ctx.Err(); err != nil {
		return models.Contact{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := s.loadContactsLocked()
	if err != nil {
		return models.Contact{}, err
	}
	contact, err := newManualContact(s.ids, name, phone, s.now().UTC())
	if err != nil {
		return models.Contact{}, err
	}
	if hasPhone(contacts, contact.Phone) {
		return models.Contact{}, fmt.Errorf("%w: %s", ErrDuplicate, contact.Phone)
	}

	contacts = append(contacts, contact)
	if err := s.saveContactsLocked(contacts); err != nil {
		return models.Contact{}, err
	}
	return contact, nil
}

func (s *JSONStore) Delete(ctx context.Context, ids []string) (DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return DeleteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts, err := s.loadContactsLocked()
	if err != nil {
		return DeleteResult{}, err
	}
	remove := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		remove[id] = struct{}{}
	}
	kept := make([]models.Contact, 0, len(contacts))
	for _, c := range contacts {
		if _, ok := remove[c.ID]; !ok {
			kept = append(kept, c)
		}
	}
	if err := s.saveContactsLocked(kept); err != nil {
		return DeleteResult{}, err
	}
	return DeleteResult{Deleted: len(contacts) - len(kept), Remaining: len(kept)}, nil
}

func (s *JSONStore) Import(ctx context.Context, rows []map[string]string) (ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return ImportResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.loadContactsLocked()
	if err != nil {
		return ImportResult{}, err
	}
	added, duplicates := planImport(existing, rows, s.ids, s.now().UTC())
	all := append(existing, added...)
	if err := s.saveContactsLocked(all); err != nil {
		return ImportResult{}, err
	}
	if added == nil {
		added = []models.Contact{}
	}
	return ImportResult{Imported: added, Duplicates: duplicates, Total: len(all)}, nil
}

func (s *JSONStore) LoadSettings(ctx context.Context) (models.Settings, error) {
	if err := ctx.Err(); err != nil {
		return models.Settings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := models.DefaultSettings()
	found, err := readJSON(s.settingsPath, &settings)
	if err != nil {
		return models.DefaultSettings(), err
	}
	if !found || settings.MessageDelay <= 0 {
		settings.MessageDelay = models.DefaultMessageDelay
	}
	return settings, nil
}

func (s *JSONStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeJSONAtomic(s.settingsPath, settings)
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) loadContactsLocked() ([]models.Contact, error) {
	var contacts []models.Contact
	if _, err := readJSON(s.contactsPath, &contacts); err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	return contacts, nil
}

func (s *JSONStore) saveContactsLocked(contacts []models.Contact) error {
	if err := writeJSONAtomic(s.contactsPath, contacts); err != nil {
		return err
	}
	logrus.WithField("count", len(contacts)).Debug("Contacts saved")
	return nil
}

// readJSON decodes path into v. A missing or blank file is not an error and
// reports found=false.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: read %s: %v", ErrIO, path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		logrus.WithError(err).WithField("path", path).Error("Store file cannot be decoded")
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupted, path, err)
	}
	return true, nil
}

// writeJSONAtomic replaces path with the encoded value through a temp file
// and a rename.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrIO, path, err)
	}
	if err := maybe.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrIO, path, err)
	}
	return nil
}
