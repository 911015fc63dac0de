package models

import (
	"time"
)

// Contact sources.
const (
	SourceManual = "manual"
	SourceImport = "import"
)

// UnnamedContact is the placeholder stored for contacts imported without a name.
const UnnamedContact = "Sin nombre"

// DefaultMessageDelay is the pause between two sends, in seconds.
const DefaultMessageDelay = 10

// Contact represents a recipient kept in the local contact list
type Contact struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Phone     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"phone"` // trimmed, dedupe key
	AddedDate time.Time `json:"addedDate"`
	Source    string    `gorm:"type:varchar(20)" json:"source"` // manual, import
	Seq       int64     `gorm:"index" json:"-"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Settings is the single configuration record edited through /api/config
type Settings struct {
	ID           uint `gorm:"primaryKey" json:"-"`
	MessageDelay int  `gorm:"default:10" json:"messageDelay"` // seconds
}

func (Settings) TableName() string {
	return "settings"
}

// DefaultSettings returns the record used when nothing has been saved yet.
func DefaultSettings() Settings {
	return Settings{MessageDelay: DefaultMessageDelay}
}

// Send statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SendResult is the outcome of one send inside a batch
type SendResult struct {
	Phone  string `json:"phone"`
	Name   string `json:"name"`
	Status string `json:"status"` // success, error
	Error  string `json:"error,omitempty"`
}

// BulkSummary is returned once a batch has been fully processed
type BulkSummary struct {
	SuccessCount int          `json:"successCount"`
	ErrorCount   int          `json:"errorCount"`
	Total        int          `json:"total"`
	Results      []SendResult `json:"results"`
}
