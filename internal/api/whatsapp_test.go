package api

import (
	"net/http"
	"testing"

	"whatsapp-bulk-sender/internal/whatsapp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhatsAppContactsGroupedByLabel(t *testing.T) {
	ts := newTestServer(t)
	ts.client.labels = []whatsapp.Label{{ID: "1", Name: "Clientes", Color: "#ff9485"}}
	ts.client.contacts = []whatsapp.Contact{
		{ID: "111@c.us", Name: "Ana", Phone: "111", IsMyContact: true, Labels: []string{"1"}},
		{ID: "222@c.us", Name: "Beto", Phone: "222", IsMyContact: true, Labels: []string{}},
		{ID: "333@c.us", Name: "Caro", Phone: "333", IsMyContact: true, Labels: []string{"9"}},
	}

	w := ts.do(http.MethodGet, "/api/whatsapp-contacts", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(3), body["totalContacts"])
	assert.Equal(t, float64(1), body["totalLabels"])

	groups := body["contactsByLabel"].(map[string]any)
	assert.Len(t, groups["Clientes"], 1)
	assert.Len(t, groups[whatsapp.NoLabelGroup], 1)
	assert.Len(t, groups["Etiqueta 9"], 1)
}

func TestWhatsAppContactsByLabel(t *testing.T) {
	ts := newTestServer(t)
	ts.client.labels = []whatsapp.Label{{ID: "1", Name: "Clientes"}}
	ts.client.chats["1"] = []whatsapp.Contact{{ID: "111@c.us", Name: "Ana", Phone: "111", Labels: []string{"1"}}}

	w := ts.do(http.MethodGet, "/api/whatsapp-contacts/label/Clientes", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Clientes", body["labelName"])
	assert.Equal(t, float64(1), body["total"])

	w = ts.do(http.MethodGet, "/api/whatsapp-contacts/label/Otros", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Etiqueta no encontrada", decode(t, w)["error"])
}

func TestWhatsAppContactsRequireReadyClient(t *testing.T) {
	ts := newTestServer(t)
	ts.client.setStatus(whatsapp.Snapshot{Status: whatsapp.StatusAuthenticated})

	w := ts.do(http.MethodGet, "/api/whatsapp-contacts", nil, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgNotReady, decode(t, w)["error"])
}
