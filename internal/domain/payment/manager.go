package payment

import (
	"context"

	"github.com/storekit/cardpay/internal/model"
	"github.com/storekit/cardpay/internal/port/outbound"
	"go.uber.org/zap"
)

// Event is one lifecycle status emitted by the payment state machine.
// ReceiptURL is set on PhaseCompleted; Failure and, when the attempt can be
// resumed, Resumable are set on PhaseFailed.
type Event struct {
	Phase      Phase
	ReceiptURL string
	Failure    *Failure
	Resumable  *model.ResumablePayment
}

// Manager drives a single payment attempt through intent creation,
// collection, processing and capture against the reader and the store
// backend. Stage transitions are strictly sequential per attempt; every
// reader and backend call is awaited without holding any lock.
type Manager struct {
	reader    outbound.CardReaderPort
	gateway   outbound.PaymentGatewayPort
	countries outbound.CountryConfigPort
	tapToPay  bool
	logger    *zap.Logger
}

// NewManager creates a payment state machine. tapToPay marks the connected
// reader as on-device NFC, which changes PIN-required error mapping.
func NewManager(
	reader outbound.CardReaderPort,
	gateway outbound.PaymentGatewayPort,
	countries outbound.CountryConfigPort,
	tapToPay bool,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		reader:    reader,
		gateway:   gateway,
		countries: countries,
		tapToPay:  tapToPay,
		logger:    logger,
	}
}

// AcceptPayment starts a fresh payment attempt. The returned channel emits
// lifecycle events in order and is closed after the terminal event.
func (m *Manager) AcceptPayment(ctx context.Context, params *model.PaymentParams) <-chan Event {
	ch := make(chan Event, 8)
	go func() {
		defer close(ch)
		m.runNew(ctx, params, ch)
	}()
	return ch
}

// RetryPayment resumes a failed attempt at the stage recorded on the
// resumable handle. It never re-creates the payment intent.
func (m *Manager) RetryPayment(ctx context.Context, orderID int64, resumable *model.ResumablePayment) <-chan Event {
	ch := make(chan Event, 8)
	go func() {
		defer close(ch)
		if resumable == nil || resumable.Intent == nil {
			m.logger.Warn("retry requested without resumable payment", zap.Int64("order_id", orderID))
			return
		}
		s := &session{
			phase:    PhaseIdle,
			ch:       ch,
			orderID:  orderID,
			currency: resumable.Intent.Currency,
			country:  resumable.CountryCode,
			logger:   m.logger,
		}
		if cfg, err := m.countries.ConfigFor(resumable.CountryCode); err == nil {
			s.cfg = cfg
		}
		m.advance(ctx, s, resumable.Intent)
	}()
	return ch
}

// CancelPayment cancels an in-flight intent. It is only meaningful while the
// intent still requires a payment method or confirmation; in any later status
// the in-flight backend operation is left to resolve and this is a no-op.
func (m *Manager) CancelPayment(ctx context.Context, resumable *model.ResumablePayment) error {
	if resumable == nil || resumable.Intent == nil {
		return nil
	}
	switch resumable.Intent.Status {
	case model.IntentRequiresPaymentMethod, model.IntentRequiresConfirmation:
		return m.reader.CancelPayment(ctx, resumable.Intent)
	default:
		return nil
	}
}

func (m *Manager) runNew(ctx context.Context, params *model.PaymentParams, ch chan<- Event) {
	s := &session{
		phase:    PhaseIdle,
		ch:       ch,
		orderID:  params.OrderID,
		currency: params.Currency,
		country:  params.CountryCode,
		logger:   m.logger,
	}

	cfg, err := m.countries.ConfigFor(params.CountryCode)
	if err != nil || !cfg.IsCurrencySupported(params.Currency) {
		s.fail(ctx, Failure{Kind: KindCurrencyNotSupported, Message: "currency not supported for country"}, nil)
		return
	}
	s.cfg = cfg

	if m.reader.ConnectionStatus() != model.ReaderConnected {
		s.fail(ctx, Failure{Kind: KindGeneric, Message: "card reader is not initialized"}, nil)
		return
	}

	enriched := *params
	if enriched.CustomerID == "" {
		if id, err := m.gateway.FetchCustomerIDForOrder(ctx, params.OrderID); err == nil && id != "" {
			enriched.CustomerID = id
		}
	}

	if !s.transition(ctx, PhaseInitializing) {
		return
	}
	res := awaitResult(ctx, m.reader.CreatePaymentIntent(ctx, &enriched))
	if res.Err != nil {
		// Creation failures normally require a full restart; keep the handle
		// only when the intent already reached a resumable sub-state.
		var handle *model.ResumablePayment
		if res.Intent != nil {
			handle = s.handle(res.Intent)
		}
		s.failRaw(ctx, res.Err, m.tapToPay, handle)
		return
	}

	m.advance(ctx, s, res.Intent)
}

// advance walks the intent through its remaining stages. It is the shared
// path for fresh attempts and retries: the entry stage is whatever the
// intent's recorded status implies.
func (m *Manager) advance(ctx context.Context, s *session, intent *model.PaymentIntent) {
	for {
		switch intent.Status {
		case model.IntentRequiresPaymentMethod:
			if !s.transition(ctx, PhaseCollecting) {
				return
			}
			res := awaitResult(ctx, m.reader.CollectPayment(ctx, intent))
			if res.Err != nil {
				if res.Err.Type == model.ReaderErrCanceled {
					s.cancel(ctx)
					return
				}
				s.failRaw(ctx, res.Err, m.tapToPay, s.handle(intent))
				return
			}
			intent = res.Intent

		case model.IntentRequiresConfirmation:
			if !s.transition(ctx, PhaseProcessing) {
				return
			}
			res := awaitResult(ctx, m.reader.ProcessPayment(ctx, intent))
			if res.Err != nil {
				s.failRaw(ctx, res.Err, m.tapToPay, s.handle(intent))
				return
			}
			intent = res.Intent

		case model.IntentRequiresCapture:
			if !s.transition(ctx, PhaseCapturing) {
				return
			}
			switch m.gateway.CapturePaymentIntent(ctx, s.orderID, intent.ID) {
			case model.CaptureSuccess, model.CaptureAlreadyCaptured:
				// "Already captured" is success: capture is idempotent per handle.
				if intent.ReceiptURL == "" {
					// A completed payment without a receipt reference is
					// unusable downstream.
					s.fail(ctx, Failure{Kind: KindGeneric, Message: "payment captured without receipt"}, nil)
					return
				}
				s.complete(ctx, intent.ReceiptURL)
				return
			case model.CaptureNetworkError:
				s.fail(ctx, Failure{Kind: KindNoNetwork, Capabilities: CapRetry, Message: "no network connection"},
					s.handle(intent))
				return
			case model.CaptureServerError:
				s.fail(ctx, Failure{Kind: KindServer, Capabilities: CapRetry, Message: "the payment server could not be reached"},
					s.handle(intent))
				return
			case model.CaptureMissingOrder:
				s.fail(ctx, Failure{Kind: KindGeneric, Message: "order not found during capture"},
					s.handle(intent))
				return
			default:
				s.fail(ctx, Failure{Kind: KindGeneric, Capabilities: CapRetry, Message: "capturing the payment failed"},
					s.handle(intent))
				return
			}

		default:
			// "Should not happen" guard: an intent status outside the expected
			// branches ends the flow without a failure event.
			m.logger.Warn("unexpected intent status, ending payment flow",
				zap.String("intent_id", intent.ID),
				zap.String("status", string(intent.Status)),
				zap.String("phase", s.phase.String()))
			return
		}
	}
}

// session tracks one attempt's phase and emits lifecycle events.
type session struct {
	phase    Phase
	ch       chan<- Event
	orderID  int64
	currency string
	country  string
	cfg      *model.CountryConfig
	logger   *zap.Logger
}

// handle wraps the intent into a resumable handle carrying the attempt's
// merchant country.
func (s *session) handle(intent *model.PaymentIntent) *model.ResumablePayment {
	return &model.ResumablePayment{Intent: intent, CountryCode: s.country}
}

func (s *session) emit(ctx context.Context, ev Event) {
	select {
	case s.ch <- ev:
	case <-ctx.Done():
	}
}

// transition moves the session forward, emitting the new phase. A transition
// the table does not allow is an invariant violation: it is logged and ends
// the flow without emitting anything.
func (s *session) transition(ctx context.Context, to Phase) bool {
	if !s.phase.CanTransitionTo(to) {
		s.logger.Warn("invalid phase transition",
			zap.String("from", s.phase.String()),
			zap.String("to", to.String()),
			zap.Int64("order_id", s.orderID))
		return false
	}
	s.phase = to
	s.emit(ctx, Event{Phase: to})
	return true
}

func (s *session) complete(ctx context.Context, receiptURL string) {
	s.phase = PhaseCompleted
	s.emit(ctx, Event{Phase: PhaseCompleted, ReceiptURL: receiptURL})
}

func (s *session) cancel(ctx context.Context) {
	s.phase = PhaseCanceled
	s.emit(ctx, Event{Phase: PhaseCanceled})
}

func (s *session) fail(ctx context.Context, f Failure, resumable *model.ResumablePayment) {
	s.phase = PhaseFailed
	s.emit(ctx, Event{Phase: PhaseFailed, Failure: &f, Resumable: resumable})
}

func (s *session) failRaw(ctx context.Context, raw *model.ReaderError, tapToPay bool, resumable *model.ResumablePayment) {
	s.fail(ctx, MapError(raw, s.cfg, s.currency, tapToPay), resumable)
}

// awaitResult drains a reader status stream until its terminal event. Stream
// closure without a terminal event is reported as a generic reader error.
func awaitResult(ctx context.Context, stream <-chan model.IntentResult) model.IntentResult {
	for {
		select {
		case res, ok := <-stream:
			if !ok {
				return model.IntentResult{Err: &model.ReaderError{Type: model.ReaderErrGeneric, Message: "reader status stream closed"}}
			}
			if res.Intent != nil || res.Err != nil {
				return res
			}
		case <-ctx.Done():
			return model.IntentResult{Err: &model.ReaderError{Type: model.ReaderErrCanceled}}
		}
	}
}
