// Package refund implements the Interac card-present refund flow: a
// two-stage variant of the payment state machine with no capture stage.
package refund

import (
	"context"

	"github.com/storekit/cardpay/internal/domain/payment"
	"github.com/storekit/cardpay/internal/model"
	"github.com/storekit/cardpay/internal/port/outbound"
	"go.uber.org/zap"
)

// Phase is the lifecycle phase of a refund attempt.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseCollecting Phase = "collecting"
	PhaseProcessing Phase = "processing"
	PhaseSucceeded  Phase = "succeeded"
	PhaseFailed     Phase = "failed"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// Event is one lifecycle status emitted by the refund state machine.
type Event struct {
	Phase   Phase
	Failure *payment.Failure
}

// Manager drives an Interac refund: collect a card, then process. Processing
// never runs after a failed collect.
type Manager struct {
	reader outbound.CardReaderPort
	logger *zap.Logger
}

// NewManager creates a refund state machine.
func NewManager(reader outbound.CardReaderPort, logger *zap.Logger) *Manager {
	return &Manager{reader: reader, logger: logger}
}

// RefundPayment starts a refund attempt. The returned channel emits lifecycle
// events in order and is closed after the terminal event.
func (m *Manager) RefundPayment(ctx context.Context, params *model.RefundParams) <-chan Event {
	ch := make(chan Event, 4)
	go func() {
		defer close(ch)
		m.run(ctx, params, ch)
	}()
	return ch
}

func (m *Manager) run(ctx context.Context, params *model.RefundParams, ch chan<- Event) {
	emit := func(ev Event) {
		select {
		case ch <- ev:
		case <-ctx.Done():
		}
	}
	fail := func(raw *model.ReaderError) {
		// Interac refunds always run against an external reader.
		f := payment.MapError(raw, nil, params.Currency, false)
		emit(Event{Phase: PhaseFailed, Failure: &f})
	}

	emit(Event{Phase: PhaseCollecting})
	if err := awaitRefund(ctx, m.reader.CollectInteracRefund(ctx, params)); err != nil {
		fail(err)
		return
	}

	emit(Event{Phase: PhaseProcessing})
	if err := awaitRefund(ctx, m.reader.ProcessInteracRefund(ctx)); err != nil {
		fail(err)
		return
	}

	emit(Event{Phase: PhaseSucceeded})
}

func awaitRefund(ctx context.Context, stream <-chan model.RefundResult) *model.ReaderError {
	for {
		select {
		case res, ok := <-stream:
			if !ok {
				return nil
			}
			if res.Err != nil {
				return res.Err
			}
		case <-ctx.Done():
			return &model.ReaderError{Type: model.ReaderErrCanceled}
		}
	}
}
