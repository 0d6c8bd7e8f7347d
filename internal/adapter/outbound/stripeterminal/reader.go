// Package stripeterminal implements CardReaderPort against Stripe's
// server-driven Terminal API: intents are created with manual capture and the
// collect stage hands the intent to a physical reader for card presentment.
package stripeterminal

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/storekit/cardpay/internal/model"
	"github.com/storekit/cardpay/internal/port/outbound"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	terminalreader "github.com/stripe/stripe-go/v76/terminal/reader"
	"go.uber.org/zap"
)

const collectPollInterval = time.Second

// Config holds Stripe Terminal configuration.
type Config struct {
	APIKey   string
	ReaderID string
}

// Reader implements outbound.CardReaderPort.
type Reader struct {
	readerID string
	messages chan model.ReaderDisplayMessage
	battery  chan model.ReaderBatteryStatus
	logger   *zap.Logger
}

// NewReader creates a Stripe Terminal reader adapter.
func NewReader(cfg *Config, logger *zap.Logger) *Reader {
	stripe.Key = cfg.APIKey
	return &Reader{
		readerID: cfg.ReaderID,
		messages: make(chan model.ReaderDisplayMessage, 16),
		battery:  make(chan model.ReaderBatteryStatus, 4),
		logger:   logger,
	}
}

var _ outbound.CardReaderPort = (*Reader)(nil)

// ConnectionStatus reports whether the server-driven reader is online.
func (r *Reader) ConnectionStatus() model.ReaderConnectionStatus {
	rd, err := terminalreader.Get(r.readerID, nil)
	if err != nil {
		return model.ReaderNotConnected
	}
	if rd.Status == "online" {
		return model.ReaderConnected
	}
	return model.ReaderNotConnected
}

func (r *Reader) CreatePaymentIntent(ctx context.Context, p *model.PaymentParams) <-chan model.IntentResult {
	out := make(chan model.IntentResult, 1)
	go func() {
		defer close(out)
		params := &stripe.PaymentIntentParams{
			Amount:             stripe.Int64(p.Amount),
			Currency:           stripe.String(p.Currency),
			PaymentMethodTypes: stripe.StringSlice([]string{"card_present"}),
			CaptureMethod:      stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		}
		if p.StatementDescriptor != "" {
			params.StatementDescriptor = stripe.String(p.StatementDescriptor)
		}
		if p.CustomerEmail != "" {
			params.ReceiptEmail = stripe.String(p.CustomerEmail)
		}
		if p.CustomerID != "" {
			params.Customer = stripe.String(p.CustomerID)
		}
		if p.FeeAmount != nil {
			params.ApplicationFeeAmount = stripe.Int64(*p.FeeAmount)
		}
		params.AddMetadata("order_id", strconv.FormatInt(p.OrderID, 10))
		params.AddMetadata("order_key", p.OrderKey)
		params.AddMetadata("site_url", p.SiteURL)

		pi, err := paymentintent.New(params)
		if err != nil {
			out <- model.IntentResult{Err: translateError(err)}
			return
		}
		out <- model.IntentResult{Intent: toIntent(pi)}
	}()
	return out
}

// CollectPayment hands the intent to the reader and waits for the cardholder
// to present a card, polling the intent until it leaves
// requires_payment_method.
func (r *Reader) CollectPayment(ctx context.Context, intent *model.PaymentIntent) <-chan model.IntentResult {
	out := make(chan model.IntentResult, 1)
	go func() {
		defer close(out)
		_, err := terminalreader.ProcessPaymentIntent(r.readerID, &stripe.TerminalReaderProcessPaymentIntentParams{
			PaymentIntent: stripe.String(intent.ID),
		})
		if err != nil {
			out <- model.IntentResult{Err: translateError(err)}
			return
		}
		r.hint(model.DisplayMsgInsertOrSwipeCard)

		ticker := time.NewTicker(collectPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pi, err := paymentintent.Get(intent.ID, expandedIntentParams())
				if err != nil {
					out <- model.IntentResult{Err: translateError(err)}
					return
				}
				if pi.Status != stripe.PaymentIntentStatusRequiresPaymentMethod {
					r.hint(model.DisplayMsgRemoveCard)
					out <- model.IntentResult{Intent: toIntent(pi)}
					return
				}
			case <-ctx.Done():
				out <- model.IntentResult{Err: &model.ReaderError{Type: model.ReaderErrCanceled}}
				return
			}
		}
	}()
	return out
}

func (r *Reader) ProcessPayment(ctx context.Context, intent *model.PaymentIntent) <-chan model.IntentResult {
	out := make(chan model.IntentResult, 1)
	go func() {
		defer close(out)
		pi, err := paymentintent.Confirm(intent.ID, &stripe.PaymentIntentConfirmParams{
			Params: stripe.Params{Expand: []*string{stripe.String("latest_charge")}},
		})
		if err != nil {
			out <- model.IntentResult{Err: translateError(err)}
			return
		}
		out <- model.IntentResult{Intent: toIntent(pi)}
	}()
	return out
}

func (r *Reader) CancelPayment(ctx context.Context, intent *model.PaymentIntent) error {
	if _, err := terminalreader.CancelAction(r.readerID, &stripe.TerminalReaderCancelActionParams{}); err != nil {
		r.logger.Warn("reader cancel action failed", zap.Error(err))
	}
	_, err := paymentintent.Cancel(intent.ID, nil)
	return err
}

// CollectInteracRefund hands an Interac refund to the reader.
func (r *Reader) CollectInteracRefund(ctx context.Context, params *model.RefundParams) <-chan model.RefundResult {
	out := make(chan model.RefundResult, 1)
	go func() {
		defer close(out)
		_, err := terminalreader.RefundPayment(r.readerID, &stripe.TerminalReaderRefundPaymentParams{
			Charge: stripe.String(params.ChargeID),
			Amount: stripe.Int64(params.Amount),
		})
		if err != nil {
			out <- model.RefundResult{Err: translateError(err)}
			return
		}
		r.hint(model.DisplayMsgInsertCard)
	}()
	return out
}

// ProcessInteracRefund waits for the in-progress refund action to settle.
func (r *Reader) ProcessInteracRefund(ctx context.Context) <-chan model.RefundResult {
	out := make(chan model.RefundResult, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(collectPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rd, err := terminalreader.Get(r.readerID, nil)
				if err != nil {
					out <- model.RefundResult{Err: translateError(err)}
					return
				}
				if rd.Action == nil || rd.Action.Status != stripe.TerminalReaderActionStatusInProgress {
					if rd.Action != nil && rd.Action.Status == stripe.TerminalReaderActionStatusFailed {
						out <- model.RefundResult{Err: &model.ReaderError{
							Type:    model.ReaderErrGeneric,
							Message: rd.Action.FailureMessage,
						}}
					}
					return
				}
			case <-ctx.Done():
				out <- model.RefundResult{Err: &model.ReaderError{Type: model.ReaderErrCanceled}}
				return
			}
		}
	}()
	return out
}

func (r *Reader) DisplayMessages() <-chan model.ReaderDisplayMessage {
	return r.messages
}

func (r *Reader) BatteryStatus() <-chan model.ReaderBatteryStatus {
	return r.battery
}

func (r *Reader) hint(msg model.ReaderDisplayMessage) {
	select {
	case r.messages <- msg:
	default:
	}
}

func expandedIntentParams() *stripe.PaymentIntentParams {
	p := &stripe.PaymentIntentParams{}
	p.AddExpand("latest_charge")
	return p
}

func toIntent(pi *stripe.PaymentIntent) *model.PaymentIntent {
	intent := &model.PaymentIntent{
		ID:       pi.ID,
		Status:   model.IntentStatus(pi.Status),
		Amount:   pi.Amount,
		Currency: string(pi.Currency),
	}
	if pi.LatestCharge != nil {
		intent.ChargeID = pi.LatestCharge.ID
		intent.ReceiptURL = pi.LatestCharge.ReceiptURL
	}
	return intent
}

// translateError folds Stripe errors into the raw reader taxonomy.
func translateError(err error) *model.ReaderError {
	var sErr *stripe.Error
	if !errors.As(err, &sErr) {
		return &model.ReaderError{Type: model.ReaderErrNoNetwork, Message: err.Error()}
	}
	switch sErr.Code {
	case stripe.ErrorCodeCardDeclined:
		return &model.ReaderError{
			Type:          model.ReaderErrCardDeclined,
			DeclineReason: string(sErr.DeclineCode),
			Message:       sErr.Msg,
		}
	case stripe.ErrorCodeAmountTooSmall:
		return &model.ReaderError{Type: model.ReaderErrAmountTooSmall, Message: sErr.Msg}
	case stripe.ErrorCodeExpiredCard:
		return &model.ReaderError{Type: model.ReaderErrCardDeclined, DeclineReason: "expired_card", Message: sErr.Msg}
	case stripe.ErrorCodeIncorrectZip:
		return &model.ReaderError{Type: model.ReaderErrCardDeclined, DeclineReason: "incorrect_zip", Message: sErr.Msg}
	}
	switch sErr.Type {
	case stripe.ErrorTypeAPI:
		return &model.ReaderError{Type: model.ReaderErrServer, Message: sErr.Msg}
	case stripe.ErrorTypeInvalidRequest:
		return &model.ReaderError{Type: model.ReaderErrGeneric, Message: sErr.Msg}
	default:
		return &model.ReaderError{Type: model.ReaderErrGeneric, Message: sErr.Msg}
	}
}
