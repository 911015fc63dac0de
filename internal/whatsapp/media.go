package whatsapp

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.mau.fi/whatsmeow"
)

var ErrNotImage = errors.New("whatsapp: file is not an image")

// Media is an image uploaded once and attached to any number of messages.
type Media struct {
	MimeType string
	Size     uint64
	upload   whatsmeow.UploadResponse
}

// readImage loads path and checks that its content is an image.
func readImage(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, "", fmt.Errorf("%w: detected %s", ErrNotImage, mtype.String())
	}
	return data, mtype.String(), nil
}
