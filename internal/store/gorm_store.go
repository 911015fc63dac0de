package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whatsapp-bulk-sender/internal/models"

	"gorm.io/gorm"
)

const settingsRowID = 1

// GormStore is the SQL backend. Contacts keep their insertion order through
// the seq column.
type GormStore struct {
	db  *gorm.DB
	ids *idSource
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, ids: newIDSource(), now: time.Now}
}

func (s *GormStore) List(ctx context.Context) ([]models.Contact, error) {
	var contacts []models.Contact
	if err := s.db.WithContext(ctx).Order("seq ASC").Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("%w: list contacts: %v", ErrIO, err)
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	return contacts, nil
}

func (s *GormStore) Add(ctx context.Context, name, phone string) (models.Contact, error) {
	contact, err := newManualContact(s.ids, name, phone, s.now().UTC())
	if err != nil {
		return models.Contact{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Contact{}).Where("phone = ?", contact.Phone).Count(&count).Error; err != nil {
			return fmt.Errorf("%w: check phone: %v", ErrIO, err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicate, contact.Phone)
		}
		seq, err := nextSeq(tx)
		if err != nil {
			return err
		}
		contact.Seq = seq
		if err := tx.Create(&contact).Error; err != nil {
			return fmt.Errorf("%w: create contact: %v", ErrIO, err)
		}
		return nil
	})
	if err != nil {
		return models.Contact{}, err
	}
	return contact, nil
}

func (s *GormStore) Delete(ctx context.Context, ids []string) (DeleteResult, error) {
	var result DeleteResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(ids) > 0 {
			res := tx.Where("id IN ?", ids).Delete(&models.Contact{})
			if res.Error != nil {
				return fmt.Errorf("%w: delete contacts: %v", ErrIO, res.Error)
			}
			result.Deleted = int(res.RowsAffected)
		}
		var remaining int64
		if err := tx.Model(&models.Contact{}).Count(&remaining).Error; err != nil {
			return fmt.Errorf("%w: count contacts: %v", ErrIO, err)
		}
		result.Remaining = int(remaining)
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	return result, nil
}

func (s *GormStore) Import(ctx context.Context, rows []map[string]string) (ImportResult, error) {
	var result ImportResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.Contact
		if err := tx.Select("id", "phone").Find(&existing).Error; err != nil {
			return fmt.Errorf("%w: load contacts: %v", ErrIO, err)
		}
		added, duplicates := planImport(existing, rows, s.ids, s.now().UTC())
		if len(added) > 0 {
			seq, err := nextSeq(tx)
			if err != nil {
				return err
			}
			for i := range added {
				added[i].Seq = seq + int64(i)
			}
			if err := tx.CreateInBatches(added, 100).Error; err != nil {
				return fmt.Errorf("%w: insert contacts: %v", ErrIO, err)
			}
		} else {
			added = []models.Contact{}
		}
		result = ImportResult{
			Imported:   added,
			Duplicates: duplicates,
			Total:      len(existing) + len(added),
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return result, nil
}

func (s *GormStore) LoadSettings(ctx context.Context) (models.Settings, error) {
	var settings models.Settings
	err := s.db.WithContext(ctx).First(&settings, settingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.DefaultSettings(), fmt.Errorf("%w: load settings: %v", ErrIO, err)
	}
	if settings.MessageDelay <= 0 {
		settings.MessageDelay = models.DefaultMessageDelay
	}
	return settings, nil
}

func (s *GormStore) SaveSettings(ctx context.Context, settings models.Settings) error {
	settings.ID = settingsRowID
	if err := s.db.WithContext(ctx).Save(&settings).Error; err != nil {
		return fmt.Errorf("%w: save settings: %v", ErrIO, err)
	}
	return nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func nextSeq(tx *gorm.DB) (int64, error) {
	var maxSeq int64
	if err := tx.Model(&models.Contact{}).Select("COALESCE(MAX(seq), 0)").Scan(&maxSeq).Error; err != nil {
		return 0, fmt.Errorf("%w: read sequence: %v", ErrIO, err)
	}
	return maxSeq + 1, nil
}
