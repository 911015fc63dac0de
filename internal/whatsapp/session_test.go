package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waSyncAction"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

func newTestSession(t *testing.T) (*Client, *session) {
	t.Helper()
	c := NewClient(Options{SessionDir: t.TempDir()})
	return c, &session{client: c, ended: make(chan *SessionError, 1)}
}

func labelEditAction(name string, color int32, deleted bool) *waSyncAction.LabelEditAction {
	return &waSyncAction.LabelEditAction{
		Name:    proto.String(name),
		Color:   proto.Int32(color),
		Deleted: proto.Bool(deleted),
	}
}

func labelAssociationAction(labeled bool) *waSyncAction.LabelAssociationAction {
	return &waSyncAction.LabelAssociationAction{Labeled: proto.Bool(labeled)}
}

func TestSessionEndingEvents(t *testing.T) {
	cases := []struct {
		name   string
		evt    interface{}
		kind   FailureKind
		status Status
	}{
		{"logged out", &events.LoggedOut{Reason: events.ConnectFailureLoggedOut}, FailureAuth, StatusAuthFailed},
		{"connect failure logged out", &events.ConnectFailure{Reason: events.ConnectFailureLoggedOut}, FailureAuth, StatusAuthFailed},
		{"connect failure server", &events.ConnectFailure{Reason: events.ConnectFailureInternalServerError, Message: "internal"}, FailureContext, StatusError},
		{"stream replaced", &events.StreamReplaced{}, FailureContext, StatusError},
		{"client outdated", &events.ClientOutdated{}, FailureInit, StatusError},
		{"disconnected", &events.Disconnected{}, FailureDisconnect, StatusDisconnected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, s := newTestSession(t)
			require.NoError(t, c.machine.SetQR("code"))

			s.handle(tc.evt)

			select {
			case sessErr := <-s.ended:
				assert.Equal(t, tc.kind, sessErr.Kind)
				assert.Error(t, sessErr.Err)
			default:
				t.Fatal("session did not end")
			}
			assert.Equal(t, tc.status, c.Status().Status)
			assert.False(t, c.Status().HasQR())
		})
	}
}

func TestSessionKeepsFirstEnding(t *testing.T) {
	_, s := newTestSession(t)
	s.handle(&events.StreamReplaced{})
	s.handle(&events.Disconnected{})

	sessErr := <-s.ended
	assert.Equal(t, FailureContext, sessErr.Kind)
	assert.Empty(t, s.ended)
}

func TestSessionPairAndConnect(t *testing.T) {
	c, s := newTestSession(t)
	require.NoError(t, c.machine.SetQR("code"))

	s.handle(&events.PairSuccess{ID: types.NewJID("5215511111111", types.DefaultUserServer)})
	assert.Equal(t, StatusAuthenticated, c.Status().Status)
	assert.False(t, c.Status().HasQR())
	assert.False(t, s.reachedConnected.Load())

	s.handle(&events.Connected{})
	assert.Equal(t, StatusConnected, c.Status().Status)
	assert.True(t, c.Status().Ready)
	assert.True(t, s.reachedConnected.Load())
	assert.Empty(t, s.ended)
}

func TestSessionConnectsFromFailureStates(t *testing.T) {
	for _, from := range []Status{StatusDisconnected, StatusError} {
		t.Run(string(from), func(t *testing.T) {
			c, s := newTestSession(t)
			require.NoError(t, c.machine.Transition(from))

			s.handle(&events.Connected{})
			assert.Equal(t, StatusConnected, c.Status().Status)
			assert.True(t, s.reachedConnected.Load())
		})
	}
}

func TestSessionLabelEvents(t *testing.T) {
	c, s := newTestSession(t)
	ana := types.NewJID("5215511111111", types.DefaultUserServer)

	s.handle(&events.LabelEdit{LabelID: "1", Action: labelEditAction("Clientes", 0, false)})
	s.handle(&events.LabelAssociationChat{JID: ana, LabelID: "1", Action: labelAssociationAction(true)})
	assert.Equal(t, []Label{{ID: "1", Name: "Clientes", Color: labelColors[0]}}, c.labels.list())
	assert.Equal(t, []types.JID{ana}, c.labels.chatsFor("1"))

	s.handle(&events.LabelEdit{LabelID: "1", Action: labelEditAction("", 0, true)})
	assert.Empty(t, c.labels.list())
}

func TestWatchQR(t *testing.T) {
	c, s := newTestSession(t)
	qrChan := make(chan whatsmeow.QRChannelItem, 3)
	qrChan <- whatsmeow.QRChannelItem{Event: whatsmeow.QRChannelEventCode, Code: "2@first"}
	qrChan <- whatsmeow.QRChannelItem{Event: whatsmeow.QRChannelEventCode, Code: "2@second"}
	close(qrChan)

	s.watchQR(qrChan)
	snap := c.Status()
	assert.Equal(t, StatusQRReady, snap.Status)
	assert.True(t, snap.HasQR())
	assert.Equal(t, "2@second", snap.QR)
	assert.Empty(t, s.ended)
}

func TestWatchQRTimeout(t *testing.T) {
	c, s := newTestSession(t)
	qrChan := make(chan whatsmeow.QRChannelItem, 2)
	qrChan <- whatsmeow.QRChannelItem{Event: whatsmeow.QRChannelEventCode, Code: "2@first"}
	qrChan <- whatsmeow.QRChannelTimeout
	close(qrChan)

	s.watchQR(qrChan)
	sessErr := <-s.ended
	assert.Equal(t, FailureInit, sessErr.Kind)
	assert.Equal(t, StatusError, c.Status().Status)
	assert.False(t, c.Status().HasQR())
}
