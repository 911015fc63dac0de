package whatsapp

import (
	"sort"
	"sync"

	"go.mau.fi/whatsmeow/types"
)

// Label is a chat label defined in the business app.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// labelColors is the palette indexed by the color number sent with label edits.
var labelColors = []string{
	"#ff9485", "#64c4ff", "#ffd429", "#dfaef0", "#99b6c1",
	"#55ccb3", "#ff9dff", "#d3a91d", "#6d7cce", "#d7e752",
	"#00d0e2", "#ffc5c7", "#93ceac", "#f74848", "#00a0f2",
	"#83e422", "#ffaf04", "#b5ebff", "#9ba6ff", "#9368cf",
}

const defaultLabelColor = "#000000"

func colorName(index int32) string {
	if index < 0 || int(index) >= len(labelColors) {
		return defaultLabelColor
	}
	return labelColors[index]
}

// labelRegistry is filled from app state events. It is rebuilt by the full
// sync on every connect and cleared when the session is wiped.
type labelRegistry struct {
	mu     sync.RWMutex
	labels map[string]Label
	chats  map[string]map[types.JID]struct{}
}

func newLabelRegistry() *labelRegistry {
	return &labelRegistry{
		labels: make(map[string]Label),
		chats:  make(map[string]map[types.JID]struct{}),
	}
}

// reset forgets every label and association.
func (r *labelRegistry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels = make(map[string]Label)
	r.chats = make(map[string]map[types.JID]struct{})
}

func (r *labelRegistry) upsert(id, name string, color int32, deleted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if deleted {
		delete(r.labels, id)
		delete(r.chats, id)
		return
	}
	r.labels[id] = Label{ID: id, Name: name, Color: colorName(color)}
}

func (r *labelRegistry) associate(labelID string, chat types.JID, labeled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.chats[labelID]
	if !labeled {
		if ok {
			delete(set, chat)
		}
		return
	}
	if !ok {
		set = make(map[types.JID]struct{})
		r.chats[labelID] = set
	}
	set[chat] = struct{}{}
}

// list returns labels sorted by name.
func (r *labelRegistry) list() []Label {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Label, 0, len(r.labels))
	for _, l := range r.labels {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *labelRegistry) byName(name string) (Label, bool) {
	for _, l := range r.list() {
		if l.Name == name {
			return l, true
		}
	}
	return Label{}, false
}

// chatsFor returns the chats tagged with labelID, sorted for stable output.
func (r *labelRegistry) chatsFor(labelID string) []types.JID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.JID, 0, len(r.chats[labelID]))
	for jid := range r.chats[labelID] {
		out = append(out, jid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// labelsOf returns the ids of the labels attached to chat.
func (r *labelRegistry) labelsOf(chat types.JID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for id, set := range r.chats {
		if _, ok := set[chat]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
