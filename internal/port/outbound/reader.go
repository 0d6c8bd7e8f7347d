package outbound

import (
	"context"

	"github.com/storekit/cardpay/internal/model"
)

// CardReaderPort is the opaque reader SDK surface. Stage calls return a
// stream of status events; the terminal event carries either the updated
// intent or a raw reader error. Implementations must close the returned
// channel after the terminal event.
type CardReaderPort interface {
	// ConnectionStatus returns the current reader connection state.
	ConnectionStatus() model.ReaderConnectionStatus

	// CreatePaymentIntent creates a payment intent for the given params.
	CreatePaymentIntent(ctx context.Context, params *model.PaymentParams) <-chan model.IntentResult

	// CollectPayment collects a card (tap/swipe/insert) for the intent.
	CollectPayment(ctx context.Context, intent *model.PaymentIntent) <-chan model.IntentResult

	// ProcessPayment submits the collected intent for backend processing.
	ProcessPayment(ctx context.Context, intent *model.PaymentIntent) <-chan model.IntentResult

	// CancelPayment cancels an intent that has not yet been processed.
	CancelPayment(ctx context.Context, intent *model.PaymentIntent) error

	// CollectInteracRefund collects a card for an Interac refund.
	CollectInteracRefund(ctx context.Context, params *model.RefundParams) <-chan model.RefundResult

	// ProcessInteracRefund processes the previously collected Interac refund.
	ProcessInteracRefund(ctx context.Context) <-chan model.RefundResult

	// DisplayMessages delivers additional-info hardware hints (insert card,
	// retry card, remove card, ...). Hints never change the flow phase.
	DisplayMessages() <-chan model.ReaderDisplayMessage

	// BatteryStatus delivers battery/connectivity reports from the reader.
	BatteryStatus() <-chan model.ReaderBatteryStatus
}
