// Package controller orchestrates a single in-person payment or Interac
// refund flow for one order: it validates reader connectivity and
// collectibility, runs the state machine, and renders lifecycle events into a
// presentation state stream.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/storekit/cardpay/internal/domain/payment"
	"github.com/storekit/cardpay/internal/domain/refund"
	"github.com/storekit/cardpay/internal/model"
	"github.com/storekit/cardpay/internal/port/outbound"
	"go.uber.org/zap"
)

const receiptKeyPrefix = "receipt_url:"

// defaultRetryDelay paces retries for UX reasons; it is not a correctness timeout.
const defaultRetryDelay = 500 * time.Millisecond

// Config wires a Controller.
type Config struct {
	Payments       *payment.Manager
	Refunds        *refund.Manager
	Orders         outbound.OrderRepositoryPort
	Gateway        outbound.PaymentGatewayPort
	Reader         outbound.CardReaderPort
	Collectibility *payment.CollectibilityChecker
	Refundability  *refund.RefundabilityChecker
	Countries      outbound.CountryConfigPort
	KV             outbound.KVStorePort
	Onboarding     outbound.OnboardingCachePort
	Feedback       outbound.FeedbackPort
	Logger         *zap.Logger

	CountryCode string
	StoreName   string
	SiteURL     string
	RetryDelay  time.Duration
}

// Flow is the controller surface driven by inbound adapters.
type Flow interface {
	CollectPayment(ctx context.Context, orderID int64) error
	CollectRefund(ctx context.Context, orderID int64) error
	Retry(ctx context.Context) error
	Cancel(ctx context.Context) error
	State() ViewState
	Busy() bool
}

// session is the single active flow owned by the controller.
type session struct {
	id          uuid.UUID
	orderID     int64
	params      *model.PaymentParams
	resumable   *model.ResumablePayment
	failure     *payment.Failure
	cancel      context.CancelFunc
	isRefund    bool
	deferCancel bool
}

// Controller owns at most one active payment or refund session at a time.
type Controller struct {
	cfg Config

	mu      sync.Mutex
	active  *session
	state   ViewState
	updates chan ViewState
	done    chan struct{}
	closed  bool
}

var _ Flow = (*Controller)(nil)

// New creates a Controller.
func New(cfg Config) *Controller {
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Controller{
		cfg:     cfg,
		state:   ViewState{Kind: StateIdle},
		updates: make(chan ViewState, 32),
		done:    make(chan struct{}),
	}
}

// State returns the current presentation state.
func (c *Controller) State() ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a flow is currently active.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Updates returns the read-only presentation state stream. Slow consumers may
// miss intermediate states; State always holds the latest.
func (c *Controller) Updates() <-chan ViewState {
	return c.updates
}

// Done is closed when the flow has finished and the screen should exit.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// CollectPayment runs the payment flow for the order. Starting a flow while
// one is active is a no-op. It blocks until the attempt reaches a terminal
// state; observe progress via Updates.
func (c *Controller) CollectPayment(ctx context.Context, orderID int64) error {
	s, ctx, cancel, ok := c.begin(ctx, orderID, false)
	if !ok {
		return nil
	}
	defer cancel()

	if st := c.cfg.Reader.ConnectionStatus(); st != model.ReaderConnected {
		c.failFast("card reader is not connected")
		return payment.ErrReaderNotConnected
	}

	c.setState(ViewState{Kind: StateLoading})

	order, err := c.cfg.Orders.FetchOrderByID(ctx, orderID)
	if err != nil || order == nil {
		c.cfg.Logger.Warn("order fetch failed", zap.Int64("order_id", orderID), zap.Error(err))
		c.failFast("unable to load the order")
		return err
	}
	if !c.cfg.Collectibility.IsCollectable(ctx, order) {
		c.failFast("this order cannot be paid in person")
		return payment.ErrOrderNotCollectable
	}

	s.params = c.buildParams(ctx, order)

	stopHints := c.startHintListener(ctx)
	defer stopHints()

	c.consumePayment(ctx, s, c.cfg.Payments.AcceptPayment(ctx, s.params))
	return nil
}

// Retry resumes the failed attempt from its last successful checkpoint after
// a short pacing delay. A handle-less failure restarts from intent creation.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	s := c.active
	if s == nil || s.failure == nil || s.isRefund {
		c.mu.Unlock()
		return payment.ErrNothingToRetry
	}
	s.failure = nil
	resumable := s.resumable
	c.mu.Unlock()

	select {
	case <-time.After(c.cfg.RetryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	s.cancel = cancel
	c.mu.Unlock()

	stopHints := c.startHintListener(ctx)
	defer stopHints()

	var events <-chan payment.Event
	if resumable != nil {
		events = c.cfg.Payments.RetryPayment(ctx, s.orderID, resumable)
	} else {
		events = c.cfg.Payments.AcceptPayment(ctx, s.params)
	}
	c.consumePayment(ctx, s, events)
	return nil
}

// CollectRefund runs the Interac refund flow for the order.
func (c *Controller) CollectRefund(ctx context.Context, orderID int64) error {
	s, ctx, cancel, ok := c.begin(ctx, orderID, true)
	if !ok {
		return nil
	}
	defer cancel()

	if st := c.cfg.Reader.ConnectionStatus(); st != model.ReaderConnected {
		c.failFast("card reader is not connected")
		return payment.ErrReaderNotConnected
	}

	c.setState(ViewState{Kind: StateLoading})

	order, err := c.cfg.Orders.FetchOrderByID(ctx, orderID)
	if err != nil || order == nil {
		c.failFast("unable to load the order")
		return err
	}
	chargeID, err := c.cfg.Gateway.FetchChargeID(ctx, orderID)
	if err != nil {
		c.failFast("unable to load the original payment")
		return err
	}
	if !c.cfg.Refundability.IsRefundable(order, chargeID) {
		c.failFast("this order cannot be refunded in person")
		return payment.ErrOrderNotCollectable
	}

	params := &model.RefundParams{
		ChargeID: chargeID,
		Amount:   order.Total - order.RefundTotal,
		Currency: order.Currency,
		OrderID:  orderID,
	}
	amountLabel := payment.FormatAmount(params.Amount, params.Currency)

	stopHints := c.startHintListener(ctx)
	defer stopHints()

	for ev := range c.cfg.Refunds.RefundPayment(ctx, params) {
		switch ev.Phase {
		case refund.PhaseCollecting:
			c.setState(ViewState{Kind: StateCollecting, AmountLabel: amountLabel, SecondaryAction: ActionCancel})
		case refund.PhaseProcessing:
			c.setState(ViewState{Kind: StateProcessing, AmountLabel: amountLabel})
		case refund.PhaseSucceeded:
			c.cfg.Feedback.PlaySuccessChime()
			c.setState(ViewState{Kind: StateSuccess, AmountLabel: amountLabel})
			c.mu.Lock()
			c.active = nil
			c.mu.Unlock()
			c.finish()
			return nil
		case refund.PhaseFailed:
			// Refunds have no retry: a failed refund destroys the session so
			// the next flow can start.
			c.onFailure(ctx, s, ev.Failure, amountLabel)
			c.mu.Lock()
			c.active = nil
			c.mu.Unlock()
			c.finish()
			return nil
		}
	}
	return nil
}

// Cancel abandons the active flow. Before the card interaction completes the
// attempt is interrupted immediately; once processing or capture has begun the
// in-flight backend call must resolve first, so the cancel is recorded and
// honored when the attempt reaches a terminal status.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	s := c.active
	if s == nil {
		c.mu.Unlock()
		return nil
	}
	switch c.state.Kind {
	case StateProcessing, StateCapturing, StateRefetching:
		s.deferCancel = true
		c.mu.Unlock()
		c.cfg.Logger.Info("cancel deferred until the attempt resolves",
			zap.String("session_id", s.id.String()),
			zap.Int64("order_id", s.orderID))
		return nil
	}
	c.active = nil
	c.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	var err error
	if !s.isRefund && s.resumable != nil {
		err = c.cfg.Payments.CancelPayment(ctx, s.resumable)
	}
	c.cfg.Logger.Info("flow canceled",
		zap.String("session_id", s.id.String()),
		zap.Int64("order_id", s.orderID))
	c.finish()
	return err
}

// Close releases the controller when the owning screen is discarded. An
// in-flight attempt is cancelled with the same phase rules as Cancel.
func (c *Controller) Close(ctx context.Context) error {
	return c.Cancel(ctx)
}

// --- internals ---

// begin registers the single active session. Returns ok=false when a flow is
// already active (idempotent start).
func (c *Controller) begin(ctx context.Context, orderID int64, isRefund bool) (*session, context.Context, context.CancelFunc, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.cfg.Logger.Info("flow already active, ignoring start",
			zap.String("session_id", c.active.id.String()),
			zap.Int64("order_id", orderID),
			zap.Int64("active_order_id", c.active.orderID))
		return nil, ctx, nil, false
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &session{id: uuid.New(), orderID: orderID, cancel: cancel, isRefund: isRefund}
	c.active = s
	c.cfg.Logger.Info("flow started",
		zap.String("session_id", s.id.String()),
		zap.Int64("order_id", orderID),
		zap.Bool("refund", isRefund))
	return s, ctx, cancel, true
}

func (c *Controller) buildParams(ctx context.Context, order *model.Order) *model.PaymentParams {
	descriptor := c.cfg.StoreName
	if v, err := c.cfg.KV.GetString(ctx, "statement_descriptor"); err == nil && v != "" {
		descriptor = v
	}

	params := &model.PaymentParams{
		Amount:              order.Total,
		Currency:            order.Currency,
		OrderID:             order.ID,
		OrderKey:            order.OrderKey,
		CustomerEmail:       order.BillingEmail,
		CustomerName:        order.BillingName,
		StoreName:           c.cfg.StoreName,
		SiteURL:             c.cfg.SiteURL,
		StatementDescriptor: payment.SanitizeStatementDescriptor(descriptor),
		CountryCode:         c.cfg.CountryCode,
	}
	if cfg, err := c.cfg.Countries.ConfigFor(c.cfg.CountryCode); err == nil && cfg.FlatFeeAmount > 0 {
		fee := cfg.FlatFeeAmount
		params.FeeAmount = &fee
	}
	return params
}

func (c *Controller) consumePayment(ctx context.Context, s *session, events <-chan payment.Event) {
	amountLabel := payment.FormatAmount(s.params.Amount, s.params.Currency)

	for ev := range events {
		switch ev.Phase {
		case payment.PhaseInitializing:
			c.setState(ViewState{Kind: StateLoading, AmountLabel: amountLabel, SecondaryAction: ActionCancel})
		case payment.PhaseCollecting:
			c.setState(ViewState{Kind: StateCollecting, AmountLabel: amountLabel, SecondaryAction: ActionCancel})
		case payment.PhaseProcessing:
			c.setState(ViewState{Kind: StateProcessing, AmountLabel: amountLabel})
		case payment.PhaseCapturing:
			c.setState(ViewState{Kind: StateCapturing, AmountLabel: amountLabel})
		case payment.PhaseCompleted:
			c.onSuccess(ctx, s, ev.ReceiptURL, amountLabel)
			return
		case payment.PhaseCanceled:
			c.mu.Lock()
			c.active = nil
			c.mu.Unlock()
			c.finish()
			return
		case payment.PhaseFailed:
			c.mu.Lock()
			s.resumable = ev.Resumable
			s.failure = ev.Failure
			deferred := s.deferCancel
			c.mu.Unlock()
			if deferred {
				// A cancel arrived while the backend call was in flight; now
				// that the attempt resolved, honor it instead of offering retry.
				if ev.Resumable != nil {
					if err := c.cfg.Payments.CancelPayment(ctx, ev.Resumable); err != nil {
						c.cfg.Logger.Warn("deferred intent cancellation failed",
							zap.String("session_id", s.id.String()), zap.Error(err))
					}
				}
				c.mu.Lock()
				c.active = nil
				c.mu.Unlock()
				c.cfg.Logger.Info("flow canceled",
					zap.String("session_id", s.id.String()),
					zap.Int64("order_id", s.orderID))
				c.finish()
				return
			}
			c.onFailure(ctx, s, ev.Failure, amountLabel)
			return
		}
	}
}

func (c *Controller) onSuccess(ctx context.Context, s *session, receiptURL, amountLabel string) {
	if s.params != nil {
		key := receiptKeyPrefix + s.params.OrderKey
		if err := c.cfg.KV.SetString(ctx, key, receiptURL); err != nil {
			c.cfg.Logger.Warn("failed to persist receipt url", zap.Error(err))
		}
	}
	c.cfg.Feedback.PlaySuccessChime()

	// Re-fetch so the screen reflects the paid order before exiting.
	c.setState(ViewState{Kind: StateRefetching, AmountLabel: amountLabel, ReceiptURL: receiptURL})
	outdated := false
	if err := c.cfg.Orders.InvalidateOrder(ctx, s.orderID); err != nil {
		c.cfg.Logger.Warn("order cache invalidation failed", zap.Error(err))
	}
	if _, err := c.cfg.Orders.FetchOrderByID(ctx, s.orderID); err != nil {
		c.cfg.Logger.Warn("post-payment order refetch failed",
			zap.Int64("order_id", s.orderID), zap.Error(err))
		outdated = true
	}

	c.setState(ViewState{
		Kind:          StateSuccess,
		AmountLabel:   amountLabel,
		ReceiptURL:    receiptURL,
		OrderOutdated: outdated,
	})
	c.mu.Lock()
	c.active = nil
	c.mu.Unlock()
	c.finish()
}

func (c *Controller) onFailure(ctx context.Context, s *session, f *payment.Failure, amountLabel string) {
	kind := "unknown"
	if f != nil {
		kind = string(f.Kind)
	}
	c.cfg.Logger.Info("flow failed",
		zap.String("session_id", s.id.String()),
		zap.Int64("order_id", s.orderID),
		zap.String("kind", kind))

	if err := c.cfg.Onboarding.Invalidate(ctx); err != nil {
		c.cfg.Logger.Warn("onboarding cache invalidation failed", zap.Error(err))
	}

	st := ViewState{
		Kind:            StateFailed,
		AmountLabel:     amountLabel,
		PrimaryAction:   ActionAcknowledge,
		SecondaryAction: ActionCancel,
	}
	if f != nil {
		st.Message = f.Message
		st.PrimaryAction = primaryActionFor(f)
	}
	c.setState(st)
}

// primaryActionFor derives the single primary action from the failure's
// capability flags. NFC enablement is the one kind-driven exception: the
// recovery is a device setting, not a payment retry.
func primaryActionFor(f *payment.Failure) Action {
	if f.Kind == payment.KindNfcDisabled {
		return ActionEnableNfc
	}
	switch {
	case f.Capabilities.Has(payment.CapRetry):
		return ActionRetry
	case f.Capabilities.Has(payment.CapContactSupport):
		return ActionContactSupport
	case f.Capabilities.Has(payment.CapPurchaseHardware):
		return ActionPurchaseReader
	default:
		return ActionAcknowledge
	}
}

// startHintListener consumes hardware display messages concurrently, updating
// only the hint text of the current state. It never changes the state kind.
func (c *Controller) startHintListener(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		msgs := c.cfg.Reader.DisplayMessages()
		for {
			select {
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				c.mu.Lock()
				c.state.Hint = hintText(msg)
				st := c.state
				c.mu.Unlock()
				c.publish(st)
			case <-ctx.Done():
				return
			}
		}
	}()
	return cancel
}

func hintText(msg model.ReaderDisplayMessage) string {
	switch msg {
	case model.DisplayMsgRetryCard:
		return "Please retry your card"
	case model.DisplayMsgInsertCard, model.DisplayMsgInsertOrSwipeCard:
		return "Please insert your card"
	case model.DisplayMsgSwipeCard:
		return "Please swipe your card"
	case model.DisplayMsgRemoveCard:
		return "Please remove your card"
	case model.DisplayMsgMultipleCardsDetected:
		return "Multiple cards detected, present one card"
	case model.DisplayMsgTryAnotherMethod:
		return "Try tapping, inserting or swiping instead"
	case model.DisplayMsgTryAnotherCard:
		return "Please try another card"
	case model.DisplayMsgCheckMobileDevice:
		return "Check your mobile device"
	default:
		return ""
	}
}

func (c *Controller) failFast(message string) {
	c.mu.Lock()
	c.active = nil
	c.mu.Unlock()
	c.setState(ViewState{Kind: StateFailed, Message: message, PrimaryAction: ActionAcknowledge})
	c.finish()
}

func (c *Controller) setState(st ViewState) {
	c.mu.Lock()
	st.Hint = "" // new phase clears the previous hardware hint
	c.state = st
	c.mu.Unlock()
	c.publish(st)
}

func (c *Controller) publish(st ViewState) {
	select {
	case c.updates <- st:
	default: // slow consumer; State() holds the latest
	}
}

func (c *Controller) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}
