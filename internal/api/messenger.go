package api

import (
	"context"

	"whatsapp-bulk-sender/internal/whatsapp"
)

// Messenger is the part of the WhatsApp client the handlers use.
type Messenger interface {
	Status() whatsapp.Snapshot
	Start() bool
	Send(ctx context.Context, address, body string, media *whatsapp.Media) error
	UploadImage(ctx context.Context, path string) (*whatsapp.Media, error)
	ListContacts(ctx context.Context) ([]whatsapp.Contact, error)
	ListLabels(ctx context.Context) ([]whatsapp.Label, error)
	LabelByName(ctx context.Context, name string) (whatsapp.Label, error)
	ListChatsByLabel(ctx context.Context, labelID string) ([]whatsapp.Contact, error)
}

// requireReady fails fast with ErrNotReady while the client is not connected.
func requireReady(m Messenger) error {
	if !m.Status().Ready {
		return whatsapp.ErrNotReady
	}
	return nil
}
