package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var errUploadTooLarge = errors.New("upload exceeds size limit")

// Uploads stores multipart files in a scratch directory.
type Uploads struct {
	Dir      string
	MaxBytes int64
}

// formFile returns the named multipart file, or nil when the request has none.
func (u Uploads) formFile(c *gin.Context, field string) (*multipart.FileHeader, error) {
	file, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, invalid("No se pudo leer el formulario: " + err.Error())
	}
	if u.MaxBytes > 0 && file.Size > u.MaxBytes {
		return nil, errUploadTooLarge
	}
	return file, nil
}

// save writes file under Dir with a unique name and returns its path. The
// caller owns the file.
func (u Uploads) save(c *gin.Context, file *multipart.FileHeader, prefix string) (string, error) {
	if err := os.MkdirAll(u.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), filepath.Base(file.Filename))
	path := filepath.Join(u.Dir, name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return path, nil
}

// flexString accepts a JSON string or number, as phone numbers arrive both ways.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string { return strings.TrimSpace(string(f)) }

func isJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), gin.MIMEJSON)
}
