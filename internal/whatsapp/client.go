// Package whatsapp wraps a whatsmeow session behind a small client: a state
// machine for the connection, a supervisor that reconnects it, and the
// send/list operations used by the API.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"whatsapp-bulk-sender/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/appstate"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"
)

const sessionDBName = "session.db"

var (
	ErrNotReady      = errors.New("whatsapp: client not ready")
	ErrLabelNotFound = errors.New("whatsapp: label not found")
	errInitTimeout   = errors.New("initialization timed out")
)

// TransportError is a send rejected by the WhatsApp servers or the socket.
type TransportError struct {
	Address string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("send to %s: %v", e.Address, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Options configures a Client.
type Options struct {
	SessionDir  string
	InitTimeout time.Duration
	MaxBackoff  time.Duration
	PrintQR     bool
}

// Contact is an address book entry of the paired account.
type Contact struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Phone       string   `json:"phone"`
	IsMyContact bool     `json:"isMyContact"`
	Labels      []string `json:"labels"`
}

type Client struct {
	opts       Options
	machine    *Machine
	labels     *labelRegistry
	supervisor *Supervisor

	mu sync.RWMutex
	wa *whatsmeow.Client
}

func NewClient(opts Options) *Client {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = 2 * time.Minute
	}
	c := &Client{
		opts:    opts,
		machine: NewMachine(),
		labels:  newLabelRegistry(),
	}
	c.supervisor = NewSupervisor(c.runSession, DefaultBackoff(opts.MaxBackoff), c.wipeSession)
	return c
}

// Start launches the reconnecting session loop. It returns false when the
// loop was already running.
func (c *Client) Start() bool {
	started := c.supervisor.Start(context.Background())
	if started {
		logrus.WithField("session_dir", c.opts.SessionDir).Info("Initializing WhatsApp client")
	}
	return started
}

func (c *Client) Running() bool { return c.supervisor.Running() }

// Close stops the supervisor and disconnects the current session.
func (c *Client) Close() {
	c.supervisor.Stop()
}

func (c *Client) Status() Snapshot { return c.machine.Snapshot() }

// Subscribe forwards every connection state change to fn.
func (c *Client) Subscribe(fn func(Snapshot)) func() { return c.machine.Subscribe(fn) }

func (c *Client) wipeSession() error {
	c.labels.reset()
	return os.RemoveAll(c.opts.SessionDir)
}

func (c *Client) setWA(wa *whatsmeow.Client) {
	c.mu.Lock()
	c.wa = wa
	c.mu.Unlock()
}

func (c *Client) connected() (*whatsmeow.Client, error) {
	c.mu.RLock()
	wa := c.wa
	c.mu.RUnlock()
	if wa == nil || !c.machine.Snapshot().Ready {
		return nil, ErrNotReady
	}
	return wa, nil
}

func (c *Client) transition(to Status) {
	if err := c.machine.Transition(to); err != nil {
		logrus.WithError(err).Debug("Ignoring connection state change")
	}
}

// fail records the failure state and builds the error returned to the supervisor.
func (c *Client) fail(kind FailureKind, err error) *SessionError {
	switch kind {
	case FailureAuth:
		c.transition(StatusAuthFailed)
	case FailureDisconnect:
		c.transition(StatusDisconnected)
	default:
		c.transition(StatusError)
	}
	return &SessionError{Kind: kind, Err: err}
}

// runSession opens the device store, connects and blocks until the
// connection is lost or ctx is cancelled.
func (c *Client) runSession(ctx context.Context) error {
	if err := os.MkdirAll(c.opts.SessionDir, 0o700); err != nil {
		return c.fail(FailureInit, fmt.Errorf("create session dir: %w", err))
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(c.opts.SessionDir, sessionDBName))
	container, err := sqlstore.New(ctx, "sqlite3", dsn, newLogger("whatsmeow/db"))
	if err != nil {
		return c.fail(FailureInit, fmt.Errorf("open session store: %w", err))
	}
	defer container.Close()

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return c.fail(FailureInit, fmt.Errorf("load device: %w", err))
	}

	wa := whatsmeow.NewClient(device, newLogger("whatsmeow"))
	wa.EnableAutoReconnect = false
	wa.EmitAppStateEventsOnFullSync = true

	sess := &session{client: c, wa: wa, ended: make(chan *SessionError, 1)}
	handlerID := wa.AddEventHandler(sess.handle)
	defer wa.RemoveEventHandler(handlerID)

	if wa.Store.ID == nil {
		qrChan, err := wa.GetQRChannel(ctx)
		if err != nil {
			return c.fail(FailureInit, fmt.Errorf("open qr channel: %w", err))
		}
		go sess.watchQR(qrChan)
	}

	if err := wa.Connect(); err != nil {
		return c.fail(FailureInit, fmt.Errorf("connect: %w", err))
	}
	c.setWA(wa)
	defer func() {
		c.setWA(nil)
		wa.Disconnect()
	}()

	timer := time.NewTimer(c.opts.InitTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			c.transition(StatusDisconnected)
			return ctx.Err()
		case <-timer.C:
			if isFailure(c.machine.Snapshot().Status) {
				return c.fail(FailureInit, errInitTimeout)
			}
		case sessErr := <-sess.ended:
			sessErr.Connected = sess.reachedConnected.Load()
			return sessErr
		}
	}
}

// session carries the per-connection event handling.
type session struct {
	client           *Client
	wa               *whatsmeow.Client
	ended            chan *SessionError
	reachedConnected atomic.Bool
}

// end reports the first terminal event; later ones are dropped.
func (s *session) end(kind FailureKind, err error) {
	sessErr := s.client.fail(kind, err)
	select {
	case s.ended <- sessErr:
	default:
	}
}

func (s *session) watchQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			logrus.Info("QR code generated, scan it with WhatsApp")
			if err := s.client.machine.SetQR(item.Code); err != nil {
				logrus.WithError(err).Debug("Ignoring QR code")
			}
			if s.client.opts.PrintQR {
				PrintQR(os.Stdout, item.Code)
			}
		case whatsmeow.QRChannelSuccess.Event:
			logrus.Info("QR code scanned")
		case whatsmeow.QRChannelTimeout.Event:
			s.end(FailureInit, errors.New("qr code was not scanned in time"))
		default:
			err := item.Error
			if err == nil {
				err = errors.New(item.Event)
			}
			s.end(FailureInit, fmt.Errorf("pairing failed: %w", err))
		}
	}
}

func (s *session) handle(evt interface{}) {
	switch e := evt.(type) {
	case *events.PairSuccess:
		logrus.WithField("jid", e.ID.String()).Info("WhatsApp client authenticated")
		s.client.transition(StatusAuthenticated)
	case *events.Connected:
		if s.client.machine.Snapshot().Status != StatusAuthenticated {
			s.client.transition(StatusAuthenticated)
		}
		s.client.transition(StatusConnected)
		s.reachedConnected.Store(true)
		logrus.Info("WhatsApp client ready")
		go s.syncLabels()
	case *events.LoggedOut:
		s.end(FailureAuth, fmt.Errorf("logged out: %s", e.Reason.String()))
	case *events.ConnectFailure:
		if e.Reason.IsLoggedOut() {
			s.end(FailureAuth, fmt.Errorf("connect failure: %s", e.Reason.String()))
			return
		}
		s.end(FailureContext, fmt.Errorf("connect failure: %s %s", e.Reason.String(), e.Message))
	case *events.StreamReplaced:
		s.end(FailureContext, errors.New("stream replaced by another session"))
	case *events.TemporaryBan:
		s.end(FailureContext, fmt.Errorf("temporary ban: %s", e.String()))
	case *events.ClientOutdated:
		s.end(FailureInit, errors.New("client version outdated"))
	case *events.Disconnected:
		s.end(FailureDisconnect, errors.New("connection closed"))
	case *events.LabelEdit:
		s.client.labels.upsert(e.LabelID, e.Action.GetName(), e.Action.GetColor(), e.Action.GetDeleted())
	case *events.LabelAssociationChat:
		s.client.labels.associate(e.LabelID, e.JID, e.Action.GetLabeled())
	}
}

// syncLabels replays the regular app state so label events are emitted even
// when the local state was already up to date. The replay only carries live
// labels, so the registry is cleared first.
func (s *session) syncLabels() {
	if s.wa == nil {
		return
	}
	s.client.labels.reset()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := s.wa.FetchAppState(ctx, appstate.WAPatchRegular, true, false); err != nil {
		logrus.WithError(err).Warn("Failed to sync WhatsApp labels")
	}
}

// UploadImage reads an image from disk and uploads it once; the returned
// Media can be attached to any number of messages.
func (c *Client) UploadImage(ctx context.Context, path string) (*Media, error) {
	wa, err := c.connected()
	if err != nil {
		return nil, err
	}
	data, mimeType, err := readImage(path)
	if err != nil {
		return nil, err
	}
	uploaded, err := wa.Upload(ctx, data, whatsmeow.MediaImage)
	if err != nil {
		return nil, &TransportError{Address: "upload", Err: err}
	}
	return &Media{MimeType: mimeType, Size: uint64(len(data)), upload: uploaded}, nil
}

// Send delivers body to address, as the caption of media when media is set.
func (c *Client) Send(ctx context.Context, address, body string, media *Media) error {
	wa, err := c.connected()
	if err != nil {
		return err
	}
	jid, err := ParseAddress(address)
	if err != nil {
		return err
	}
	if _, err := wa.SendMessage(ctx, jid, buildMessage(body, media)); err != nil {
		return &TransportError{Address: address, Err: err}
	}
	return nil
}

func buildMessage(body string, media *Media) *waE2E.Message {
	if media == nil {
		return &waE2E.Message{Conversation: proto.String(body)}
	}
	return &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{
			Caption:       proto.String(body),
			Mimetype:      proto.String(media.MimeType),
			URL:           proto.String(media.upload.URL),
			DirectPath:    proto.String(media.upload.DirectPath),
			MediaKey:      media.upload.MediaKey,
			FileEncSHA256: media.upload.FileEncSHA256,
			FileSHA256:    media.upload.FileSHA256,
			FileLength:    proto.Uint64(media.Size),
		},
	}
}

// ListContacts returns the saved address book contacts, without groups or
// broadcast lists, sorted by name.
func (c *Client) ListContacts(ctx context.Context) ([]Contact, error) {
	wa, err := c.connected()
	if err != nil {
		return nil, err
	}
	all, err := wa.Store.Contacts.GetAllContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	contacts := make([]Contact, 0, len(all))
	for jid, info := range all {
		if jid.Server != types.DefaultUserServer || info.FullName == "" {
			continue
		}
		contacts = append(contacts, Contact{
			ID:          AddressOf(jid),
			Name:        info.FullName,
			Phone:       jid.User,
			IsMyContact: true,
			Labels:      nonNil(c.labels.labelsOf(jid)),
		})
	}
	sortContacts(contacts)
	return contacts, nil
}

func (c *Client) ListLabels(ctx context.Context) ([]Label, error) {
	if _, err := c.connected(); err != nil {
		return nil, err
	}
	return c.labels.list(), nil
}

// LabelByName finds a label by its display name.
func (c *Client) LabelByName(ctx context.Context, name string) (Label, error) {
	if _, err := c.connected(); err != nil {
		return Label{}, err
	}
	label, ok := c.labels.byName(name)
	if !ok {
		return Label{}, fmt.Errorf("%w: %s", ErrLabelNotFound, name)
	}
	return label, nil
}

// ListChatsByLabel returns the user chats tagged with labelID.
func (c *Client) ListChatsByLabel(ctx context.Context, labelID string) ([]Contact, error) {
	wa, err := c.connected()
	if err != nil {
		return nil, err
	}
	var contacts []Contact
	for _, jid := range c.labels.chatsFor(labelID) {
		if jid.Server != types.DefaultUserServer {
			continue
		}
		info, err := wa.Store.Contacts.GetContact(ctx, jid)
		if err != nil {
			logrus.WithError(err).WithField("jid", jid.String()).Warn("Failed to load labeled contact")
		}
		contacts = append(contacts, Contact{
			ID:          AddressOf(jid),
			Name:        displayName(info),
			Phone:       jid.User,
			IsMyContact: info.FullName != "",
			Labels:      nonNil(c.labels.labelsOf(jid)),
		})
	}
	return nonNilContacts(contacts), nil
}

// GroupByLabel buckets contacts under the name of each of their labels.
// Contacts without labels go under noLabelGroup.
func GroupByLabel(contacts []Contact, labels []Label) map[string][]Contact {
	names := make(map[string]string, len(labels))
	for _, l := range labels {
		names[l.ID] = l.Name
	}
	groups := make(map[string][]Contact)
	for _, contact := range contacts {
		if len(contact.Labels) == 0 {
			groups[NoLabelGroup] = append(groups[NoLabelGroup], contact)
			continue
		}
		for _, id := range contact.Labels {
			name, ok := names[id]
			if !ok {
				name = "Etiqueta " + id
			}
			groups[name] = append(groups[name], contact)
		}
	}
	return groups
}

// NoLabelGroup collects contacts that carry no label.
const NoLabelGroup = "Sin etiqueta"

func displayName(info types.ContactInfo) string {
	switch {
	case info.FullName != "":
		return info.FullName
	case info.PushName != "":
		return info.PushName
	case info.BusinessName != "":
		return info.BusinessName
	default:
		return models.UnnamedContact
	}
}

func sortContacts(contacts []Contact) {
	sort.Slice(contacts, func(i, j int) bool {
		if contacts[i].Name == contacts[j].Name {
			return contacts[i].ID < contacts[j].ID
		}
		return contacts[i].Name < contacts[j].Name
	})
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func nonNilContacts(contacts []Contact) []Contact {
	if contacts == nil {
		return []Contact{}
	}
	return contacts
}
