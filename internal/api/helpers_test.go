package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"whatsapp-bulk-sender/internal/config"
	"whatsapp-bulk-sender/internal/dispatch"
	"whatsapp-bulk-sender/internal/store"
	"whatsapp-bulk-sender/internal/whatsapp"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type sentMessage struct {
	Address string
	Body    string
	Image   bool
}

type fakeMessenger struct {
	mu       sync.Mutex
	snap     whatsapp.Snapshot
	started  bool
	sent     []sentMessage
	failFor  map[string]error
	uploads  int
	contacts []whatsapp.Contact
	labels   []whatsapp.Label
	chats    map[string][]whatsapp.Contact
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		snap:    whatsapp.Snapshot{Status: whatsapp.StatusConnected, Ready: true},
		failFor: map[string]error{},
		chats:   map[string][]whatsapp.Contact{},
	}
}

func (f *fakeMessenger) setStatus(snap whatsapp.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
}

func (f *fakeMessenger) Status() whatsapp.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeMessenger) Start() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return false
	}
	f.started = true
	return true
}

func (f *fakeMessenger) ready() error {
	if !f.snap.Ready {
		return whatsapp.ErrNotReady
	}
	return nil
}

func (f *fakeMessenger) Send(ctx context.Context, address, body string, media *whatsapp.Media) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ready(); err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{Address: address, Body: body, Image: media != nil})
	if err := f.failFor[address]; err != nil {
		return &whatsapp.TransportError{Address: address, Err: err}
	}
	return nil
}

func (f *fakeMessenger) UploadImage(ctx context.Context, path string) (*whatsapp.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ready(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	f.uploads++
	return &whatsapp.Media{MimeType: "image/png"}, nil
}

func (f *fakeMessenger) ListContacts(ctx context.Context) ([]whatsapp.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ready(); err != nil {
		return nil, err
	}
	return f.contacts, nil
}

func (f *fakeMessenger) ListLabels(ctx context.Context) ([]whatsapp.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ready(); err != nil {
		return nil, err
	}
	return f.labels, nil
}

func (f *fakeMessenger) LabelByName(ctx context.Context, name string) (whatsapp.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ready(); err != nil {
		return whatsapp.Label{}, err
	}
	for _, l := range f.labels {
		if l.Name == name {
			return l, nil
		}
	}
	return whatsapp.Label{}, fmt.Errorf("%w: %s", whatsapp.ErrLabelNotFound, name)
}

func (f *fakeMessenger) ListChatsByLabel(ctx context.Context, labelID string) ([]whatsapp.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.ready(); err != nil {
		return nil, err
	}
	return f.chats[labelID], nil
}

func (f *fakeMessenger) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type testServer struct {
	router    *gin.Engine
	client    *fakeMessenger
	store     store.Store
	dataDir   string
	uploadDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dataDir := t.TempDir()
	uploadDir := t.TempDir()
	s, err := store.NewJSONStore(dataDir)
	require.NoError(t, err)

	client := newFakeMessenger()
	cfg := &config.Config{
		UploadDir:    uploadDir,
		PublicDir:    t.TempDir(),
		MaxUploadMB:  50,
		DefaultDelay: 10,
	}
	router := NewRouter(Deps{
		Config:     cfg,
		Store:      s,
		Client:     client,
		Dispatcher: dispatch.New(client),
	})
	return &testServer{router: router, client: client, store: s, dataDir: dataDir, uploadDir: uploadDir}
}

func (ts *testServer) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func (ts *testServer) doJSON(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return ts.do(method, path, bytes.NewReader(data), "application/json")
}

type upload struct {
	field, name string
	content     []byte
}

func (ts *testServer) doMultipart(t *testing.T, path string, fields map[string]string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return ts.do(http.MethodPost, path, &buf, mw.FormDataContentType())
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}
