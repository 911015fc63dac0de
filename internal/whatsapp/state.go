package whatsapp

import (
	"errors"
	"fmt"
	"sync"
)

// Status is the connection state reported by /api/status.
type Status string

const (
	StatusDisconnected  Status = "disconnected"
	StatusQRReady       Status = "qr_ready"
	StatusAuthenticated Status = "authenticated"
	StatusConnected     Status = "connected"
	StatusAuthFailed    Status = "auth_failed"
	StatusError         Status = "error"
)

var ErrInvalidTransition = errors.New("whatsapp: invalid state transition")

// Failure states are reachable from anywhere; the pairing path only moves forward.
var transitions = map[Status][]Status{
	StatusDisconnected:  {StatusQRReady, StatusAuthenticated},
	StatusQRReady:       {StatusQRReady, StatusAuthenticated},
	StatusAuthenticated: {StatusConnected},
	StatusConnected:     {},
	StatusAuthFailed:    {StatusQRReady, StatusAuthenticated},
	StatusError:         {StatusQRReady, StatusAuthenticated},
}

func isFailure(s Status) bool {
	return s == StatusDisconnected || s == StatusAuthFailed || s == StatusError
}

// Snapshot is a consistent view of the connection state.
type Snapshot struct {
	Status Status `json:"status"`
	Ready  bool   `json:"isReady"`
	QR     string `json:"-"`
}

func (s Snapshot) HasQR() bool { return s.QR != "" }

// Machine owns the connection state. Only the session goroutines write to it;
// API handlers read snapshots or subscribe to changes.
type Machine struct {
	mu     sync.RWMutex
	status Status
	qr     string

	// notifyMu keeps subscriber callbacks in transition order.
	notifyMu sync.Mutex
	subsMu   sync.Mutex
	subs     map[int]func(Snapshot)
	nextSub  int
}

func NewMachine() *Machine {
	return &Machine{status: StatusDisconnected, subs: make(map[int]func(Snapshot))}
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Machine) snapshotLocked() Snapshot {
	return Snapshot{Status: m.status, Ready: m.status == StatusConnected, QR: m.qr}
}

// Transition moves the machine to the given status. The pairing code is
// cleared on every transition except into qr_ready.
func (m *Machine) Transition(to Status) error {
	return m.apply(to, "")
}

// SetQR publishes a fresh pairing code and moves to qr_ready.
func (m *Machine) SetQR(code string) error {
	return m.apply(StatusQRReady, code)
}

func (m *Machine) apply(to Status, qr string) error {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	from := m.status
	if !canTransition(from, to) {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if from == to && m.qr == qr {
		m.mu.Unlock()
		return nil
	}
	m.status = to
	m.qr = qr
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.subsMu.Lock()
	subs := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subsMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return nil
}

func canTransition(from, to Status) bool {
	if isFailure(to) {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Subscribe registers fn for every state change. fn runs on the writer's
// goroutine and must not call back into the machine's mutators.
func (m *Machine) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.subsMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subsMu.Lock()
			delete(m.subs, id)
			m.subsMu.Unlock()
		})
	}
}
