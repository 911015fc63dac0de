package api

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddContact(t *testing.T) {
	ts := newTestServer(t)

	w := ts.doJSON(t, http.MethodPost, "/api/contacts/add", map[string]any{"name": "Ana", "phone": 555111})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["total"])
	contact := body["contact"].(map[string]any)
	assert.Equal(t, "555111", contact["phone"])
	assert.Equal(t, "manual", contact["source"])

	w = ts.doJSON(t, http.MethodPost, "/api/contacts/add", map[string]any{"name": "Ana 2", "phone": " 555111 "})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Este número ya existe en los contactos", decode(t, w)["error"])

	w = ts.doJSON(t, http.MethodPost, "/api/contacts/add", map[string]any{"phone": "555222"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Nombre y teléfono son requeridos", decode(t, w)["error"])

	w = ts.do(http.MethodGet, "/api/contacts", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])
}

func TestDeleteContactsIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ana, err := ts.store.Add(ctx, "Ana", "1")
	require.NoError(t, err)
	_, err = ts.store.Add(ctx, "Beto", "2")
	require.NoError(t, err)

	payload := map[string]any{"contactIds": []string{ana.ID, "missing"}}
	w := ts.doJSON(t, http.MethodDelete, "/api/contacts/delete", payload)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(1), body["deletedCount"])
	assert.Equal(t, float64(1), body["remainingCount"])

	w = ts.doJSON(t, http.MethodDelete, "/api/contacts/delete", payload)
	body = decode(t, w)
	assert.Equal(t, float64(0), body["deletedCount"])
	assert.Equal(t, float64(1), body["remainingCount"])

	w = ts.doJSON(t, http.MethodDelete, "/api/contacts/delete", map[string]any{"contactIds": []string{}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "IDs de contactos requeridos", decode(t, w)["error"])
}

func TestImportCSV(t *testing.T) {
	ts := newTestServer(t)

	w := ts.doMultipart(t, "/api/contacts/import", nil, upload{
		field: "file", name: "contacts.csv", content: []byte("name,phone\nAna,555111\nAna,555111"),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(1), body["imported"])
	assert.Equal(t, float64(1), body["duplicates"])
	assert.Equal(t, float64(1), body["total"])
	assert.Len(t, body["contacts"], 1)

	entries, err := os.ReadDir(ts.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImportRejectsMissingOrUnknownFile(t *testing.T) {
	ts := newTestServer(t)

	w := ts.doMultipart(t, "/api/contacts/import", map[string]string{"note": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No se encontró archivo", decode(t, w)["error"])

	w = ts.doMultipart(t, "/api/contacts/import", nil, upload{field: "file", name: "contacts.txt", content: []byte("a")})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCorruptedStoreIsReported(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(ts.dataDir, "contacts.json"), []byte("{not json"), 0o644))

	w := ts.do(http.MethodGet, "/api/contacts", nil, "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w)["error"], "dañado")

	w = ts.doJSON(t, http.MethodPost, "/api/contacts/add", map[string]any{"name": "Ana", "phone": "1"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAddContactFromForm(t *testing.T) {
	ts := newTestServer(t)

	form := url.Values{"name": {"Ana"}, "phone": {" 555111 "}}
	w := ts.do(http.MethodPost, "/api/contacts/add", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	contact := decode(t, w)["contact"].(map[string]any)
	assert.Equal(t, "Ana", contact["name"])
	assert.Equal(t, "555111", contact["phone"])

	form = url.Values{"phone": {"555222"}}
	w = ts.do(http.MethodPost, "/api/contacts/add", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Nombre y teléfono son requeridos", decode(t, w)["error"])
}
