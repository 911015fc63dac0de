package whatsapp

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// FailureKind classifies why a session ended. It selects the reconnect delay.
type FailureKind int

const (
	FailureDisconnect FailureKind = iota
	FailureContext
	FailureAuth
	FailureInit
)

func (k FailureKind) String() string {
	switch k {
	case FailureDisconnect:
		return "disconnect"
	case FailureContext:
		return "context"
	case FailureAuth:
		return "auth"
	case FailureInit:
		return "init"
	default:
		return "unknown"
	}
}

// SessionError is returned by a session run when the connection is lost.
type SessionError struct {
	Kind FailureKind
	Err  error
	// Connected is set when the session reached the connected state before
	// ending; it resets the backoff.
	Connected bool
}

func (e *SessionError) Error() string {
	if e.Err == nil {
		return "session ended: " + e.Kind.String()
	}
	return "session ended (" + e.Kind.String() + "): " + e.Err.Error()
}

func (e *SessionError) Unwrap() error { return e.Err }

// Backoff holds the base reconnect delay per failure kind. Consecutive
// failures double the delay up to Max.
type Backoff struct {
	Disconnect time.Duration
	Context    time.Duration
	Auth       time.Duration
	Init       time.Duration
	Max        time.Duration
}

func DefaultBackoff(max time.Duration) Backoff {
	return Backoff{
		Disconnect: 5 * time.Second,
		Context:    8 * time.Second,
		Auth:       10 * time.Second,
		Init:       15 * time.Second,
		Max:        max,
	}
}

// Delay returns the wait before retry number attempt (0 based).
func (b Backoff) Delay(kind FailureKind, attempt int) time.Duration {
	var base time.Duration
	switch kind {
	case FailureDisconnect:
		base = b.Disconnect
	case FailureContext:
		base = b.Context
	case FailureAuth:
		base = b.Auth
	default:
		base = b.Init
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}

// RunFunc runs one session and blocks until it ends.
type RunFunc func(ctx context.Context) error

// Supervisor keeps a session alive: it runs it, waits the backoff for the
// failure kind and runs it again until stopped.
type Supervisor struct {
	run     RunFunc
	backoff Backoff
	// onAuthFailure runs before the retry of a session that failed auth.
	onAuthFailure func() error
	after         func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewSupervisor(run RunFunc, backoff Backoff, onAuthFailure func() error) *Supervisor {
	return &Supervisor{
		run:           run,
		backoff:       backoff,
		onAuthFailure: onAuthFailure,
		after:         time.After,
	}
}

// Start launches the loop. It returns false when the loop is already running.
func (s *Supervisor) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.loop(ctx, s.done)
	return true
}

func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Stop cancels the running session and waits for the loop to exit.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Wait blocks until the loop exits.
func (s *Supervisor) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Supervisor) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.cancel = nil
		s.mu.Unlock()
		close(done)
	}()

	attempt := 0
	for {
		err := s.run(ctx)
		if ctx.Err() != nil {
			logrus.Info("WhatsApp supervisor stopped")
			return
		}

		kind := FailureDisconnect
		var sessErr *SessionError
		if errors.As(err, &sessErr) {
			kind = sessErr.Kind
			if sessErr.Connected {
				attempt = 0
			}
		} else if err != nil {
			kind = FailureInit
		}

		if kind == FailureAuth && s.onAuthFailure != nil {
			if werr := s.onAuthFailure(); werr != nil {
				logrus.WithError(werr).Error("Failed to clear WhatsApp session")
			} else {
				logrus.Warn("WhatsApp session data cleared after auth failure")
			}
		}

		delay := s.backoff.Delay(kind, attempt)
		attempt++
		logrus.WithFields(logrus.Fields{
			"reason":  kind.String(),
			"attempt": attempt,
			"delay":   delay.String(),
		}).WithError(err).Warn("WhatsApp session ended, reconnecting")

		select {
		case <-ctx.Done():
			logrus.Info("WhatsApp supervisor stopped")
			return
		case <-s.after(delay):
		}
	}
}
