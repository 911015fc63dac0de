// Package dispatch runs bulk sends: one message per target, in order, with
// a pause between sends and a per-target result.
package dispatch

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"whatsapp-bulk-sender/internal/models"
	"whatsapp-bulk-sender/internal/whatsapp"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoTargets = errors.New("dispatch: no targets")
	ErrNoMessage = errors.New("dispatch: message is required")
	ErrBusy      = errors.New("dispatch: a batch is already running")
)

// IncompleteRow is the error recorded for targets without phone or message.
const IncompleteRow = "Datos incompletos"

// NamePlaceholder is replaced by the target name in message templates.
const NamePlaceholder = "{nombre}"

// Transport sends messages and uploads the batch image.
type Transport interface {
	Send(ctx context.Context, address, body string, media *whatsapp.Media) error
	UploadImage(ctx context.Context, path string) (*whatsapp.Media, error)
}

// Target is one recipient of a batch.
type Target struct {
	Phone string
	Name  string
	// Address skips phone normalization when set.
	Address string
	// Message replaces the batch template for this target.
	Message string
}

// Batch describes one bulk send.
type Batch struct {
	Targets  []Target
	Template string
	// ImagePath is a temporary upload; it is removed when the batch ends.
	ImagePath string
	Delay     time.Duration
	// PerTarget batches carry their messages on the targets; targets left
	// without one are reported as incomplete instead of rejecting the batch.
	PerTarget bool
}

func (b Batch) validate() error {
	if len(b.Targets) == 0 {
		return ErrNoTargets
	}
	if b.PerTarget || strings.TrimSpace(b.Template) != "" {
		return nil
	}
	for _, t := range b.Targets {
		if t.Message != "" {
			return nil
		}
	}
	return ErrNoMessage
}

// Progress is reported after every processed target.
type Progress struct {
	Index  int               `json:"index"`
	Total  int               `json:"total"`
	Result models.SendResult `json:"result"`
}

type Dispatcher struct {
	transport  Transport
	onProgress func(Progress)
	busy       atomic.Bool
	after      func(time.Duration) <-chan time.Time
}

func New(transport Transport) *Dispatcher {
	return &Dispatcher{transport: transport, after: time.After}
}

// OnProgress registers fn to observe every processed target.
func (d *Dispatcher) OnProgress(fn func(Progress)) {
	d.onProgress = fn
}

// Busy reports whether a batch is in flight.
func (d *Dispatcher) Busy() bool { return d.busy.Load() }

// Run processes the whole batch and returns its summary. A failed send is
// recorded and the batch continues; only an upload failure, a rejected batch
// or ctx cancellation end it early, in which case the partial summary is
// returned along with the error.
func (d *Dispatcher) Run(ctx context.Context, b Batch) (models.BulkSummary, error) {
	defer removeTemp(b.ImagePath)

	if err := b.validate(); err != nil {
		return models.BulkSummary{}, err
	}
	if !d.busy.CompareAndSwap(false, true) {
		return models.BulkSummary{}, ErrBusy
	}
	defer d.busy.Store(false)

	var media *whatsapp.Media
	if b.ImagePath != "" {
		var err error
		media, err = d.transport.UploadImage(ctx, b.ImagePath)
		if err != nil {
			return models.BulkSummary{}, err
		}
	}

	it := newIterator(b, media)
	for it.state != stateDone {
		result, ok, err := it.next(ctx, d)
		if err != nil {
			logrus.WithError(err).WithField("processed", it.summary.SuccessCount+it.summary.ErrorCount).Warn("Bulk send cancelled")
			return it.summary, err
		}
		if ok && d.onProgress != nil {
			d.onProgress(Progress{Index: it.index, Total: len(b.Targets), Result: result})
		}
	}

	logrus.WithFields(logrus.Fields{
		"success": it.summary.SuccessCount,
		"errors":  it.summary.ErrorCount,
		"total":   it.summary.Total,
	}).Info("Bulk send completed")
	return it.summary, nil
}

// wait pauses for delay unless ctx ends first.
func (d *Dispatcher) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.after(delay):
		return nil
	}
}

// Personalize replaces every {nombre} in template with name. Templates are
// left untouched for unnamed targets.
func Personalize(template, name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == models.UnnamedContact {
		return template
	}
	return strings.ReplaceAll(template, NamePlaceholder, name)
}

func removeTemp(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).WithField("path", path).Warn("Failed to remove temporary upload")
	}
}
