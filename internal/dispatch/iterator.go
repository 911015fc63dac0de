package dispatch

import (
	"context"

	"whatsapp-bulk-sender/internal/models"
	"whatsapp-bulk-sender/internal/whatsapp"

	"github.com/sirupsen/logrus"
)

type iterState int

const (
	statePending iterState = iota
	stateSending
	stateDone
)

// iterator walks a batch one target per step: pending -> sending -> pending
// until the last target moves it to done.
type iterator struct {
	batch   Batch
	media   *whatsapp.Media
	state   iterState
	index   int
	sent    bool
	summary models.BulkSummary
}

func newIterator(b Batch, media *whatsapp.Media) *iterator {
	return &iterator{
		batch: b,
		media: media,
		summary: models.BulkSummary{
			Total:   len(b.Targets),
			Results: make([]models.SendResult, 0, len(b.Targets)),
		},
	}
}

// next processes the current target. ok is false when nothing was recorded.
func (it *iterator) next(ctx context.Context, d *Dispatcher) (models.SendResult, bool, error) {
	if it.index >= len(it.batch.Targets) {
		it.state = stateDone
		return models.SendResult{}, false, nil
	}
	target := it.batch.Targets[it.index]
	result := models.SendResult{Phone: target.Phone, Name: target.Name}

	body := target.Message
	if body == "" {
		body = it.batch.Template
	}
	if (target.Phone == "" && target.Address == "") || body == "" {
		if result.Phone == "" {
			result.Phone = "N/A"
		}
		return it.record(result, IncompleteRow), true, nil
	}

	address := target.Address
	if address == "" {
		var err error
		address, err = whatsapp.NormalizeAddress(target.Phone)
		if err != nil {
			return it.record(result, err.Error()), true, nil
		}
	}

	// The pause goes between two sends, never before the first one.
	if it.sent {
		if err := d.wait(ctx, it.batch.Delay); err != nil {
			it.state = stateDone
			return models.SendResult{}, false, err
		}
	}
	if err := ctx.Err(); err != nil {
		it.state = stateDone
		return models.SendResult{}, false, err
	}

	it.state = stateSending
	err := d.transport.Send(ctx, address, Personalize(body, target.Name), it.media)
	it.sent = true
	if err != nil {
		return it.record(result, err.Error()), true, nil
	}
	return it.record(result, ""), true, nil
}

func (it *iterator) record(result models.SendResult, errMsg string) models.SendResult {
	log := logrus.WithFields(logrus.Fields{
		"phone":    result.Phone,
		"position": it.index + 1,
		"total":    len(it.batch.Targets),
	})
	if errMsg == "" {
		result.Status = models.StatusSuccess
		it.summary.SuccessCount++
		log.Info("Message sent")
	} else {
		result.Status = models.StatusError
		result.Error = errMsg
		it.summary.ErrorCount++
		log.WithField("error", errMsg).Warn("Message failed")
	}
	it.summary.Results = append(it.summary.Results, result)
	it.index++
	if it.index >= len(it.batch.Targets) {
		it.state = stateDone
	} else {
		it.state = statePending
	}
	return result
}
