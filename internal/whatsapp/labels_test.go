package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mau.fi/whatsmeow/types"
)

func TestLabelRegistry(t *testing.T) {
	r := newLabelRegistry()
	ana := types.NewJID("5215511111111", types.DefaultUserServer)
	beto := types.NewJID("5215522222222", types.DefaultUserServer)

	r.upsert("2", "Clientes", 1, false)
	r.upsert("1", "Nuevos", 0, false)
	r.upsert("9", "Basura", 99, false)
	r.associate("2", beto, true)
	r.associate("2", ana, true)
	r.associate("1", ana, true)

	assert.Equal(t, []Label{
		{ID: "9", Name: "Basura", Color: defaultLabelColor},
		{ID: "2", Name: "Clientes", Color: labelColors[1]},
		{ID: "1", Name: "Nuevos", Color: labelColors[0]},
	}, r.list())

	label, ok := r.byName("Clientes")
	assert.True(t, ok)
	assert.Equal(t, "2", label.ID)
	_, ok = r.byName("clientes")
	assert.False(t, ok)

	assert.Equal(t, []types.JID{ana, beto}, r.chatsFor("2"))
	assert.Equal(t, []string{"1", "2"}, r.labelsOf(ana))

	r.associate("2", beto, false)
	assert.Equal(t, []types.JID{ana}, r.chatsFor("2"))

	r.upsert("2", "", 0, true)
	assert.Empty(t, r.chatsFor("2"))
	assert.Equal(t, []string{"1"}, r.labelsOf(ana))
}

func TestGroupByLabel(t *testing.T) {
	labels := []Label{{ID: "1", Name: "Clientes"}}
	contacts := []Contact{
		{ID: "1@c.us", Name: "Ana", Labels: []string{"1"}},
		{ID: "2@c.us", Name: "Beto", Labels: []string{}},
		{ID: "3@c.us", Name: "Caro", Labels: []string{"1", "7"}},
	}

	groups := GroupByLabel(contacts, labels)
	assert.Len(t, groups, 3)
	assert.Equal(t, []string{"Ana", "Caro"}, contactNames(groups["Clientes"]))
	assert.Equal(t, []string{"Caro"}, contactNames(groups["Etiqueta 7"]))
	assert.Equal(t, []string{"Beto"}, contactNames(groups[NoLabelGroup]))
}

func contactNames(contacts []Contact) []string {
	out := make([]string, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, c.Name)
	}
	return out
}

func TestLabelRegistryReset(t *testing.T) {
	r := newLabelRegistry()
	ana := types.NewJID("5215511111111", types.DefaultUserServer)
	r.upsert("1", "Clientes", 0, false)
	r.associate("1", ana, true)

	r.reset()
	assert.Empty(t, r.list())
	assert.Empty(t, r.chatsFor("1"))
	assert.Empty(t, r.labelsOf(ana))

	r.upsert("2", "Nuevos", 0, false)
	assert.Equal(t, []Label{{ID: "2", Name: "Nuevos", Color: labelColors[0]}}, r.list())
}
