package api

import (
	"net/http"
	"testing"

	"whatsapp-bulk-sender/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaultsAndInvalidDelay(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/config", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"messageDelay": float64(10)}, decode(t, w))

	w = ts.doJSON(t, http.MethodPost, "/api/config", map[string]any{"messageDelay": "5"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"messageDelay": float64(5)}, decode(t, w)["config"])

	w = ts.doJSON(t, http.MethodPost, "/api/config", map[string]any{"messageDelay": "abc"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/api/config", nil, "")
	assert.Equal(t, map[string]any{"messageDelay": float64(10)}, decode(t, w))
}

func TestConfigCapsMessageDelay(t *testing.T) {
	ts := newTestServer(t)

	w := ts.doJSON(t, http.MethodPost, "/api/config", map[string]any{"messageDelay": "10000000000"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"messageDelay": float64(models.MaxMessageDelay)}, decode(t, w)["config"])
}
