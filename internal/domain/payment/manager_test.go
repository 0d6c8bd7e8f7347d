package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storekit/cardpay/internal/model"
)

// fakeReader scripts one result per stage and counts calls.
type fakeReader struct {
	status     model.ReaderConnectionStatus
	createRes  model.IntentResult
	collectRes model.IntentResult
	processRes model.IntentResult

	createCalls  int
	collectCalls int
	processCalls int
	cancelCalls  int

	lastParams *model.PaymentParams
}

func stream(res model.IntentResult) <-chan model.IntentResult {
	ch := make(chan model.IntentResult, 1)
	ch <- res
	close(ch)
	return ch
}

func (f *fakeReader) ConnectionStatus() model.ReaderConnectionStatus { return f.status }

func (f *fakeReader) CreatePaymentIntent(_ context.Context, params *model.PaymentParams) <-chan model.IntentResult {
	f.createCalls++
	f.lastParams = params
	return stream(f.createRes)
}

func (f *fakeReader) CollectPayment(_ context.Context, _ *model.PaymentIntent) <-chan model.IntentResult {
	f.collectCalls++
	return stream(f.collectRes)
}

func (f *fakeReader) ProcessPayment(_ context.Context, _ *model.PaymentIntent) <-chan model.IntentResult {
	f.processCalls++
	return stream(f.processRes)
}

func (f *fakeReader) CancelPayment(_ context.Context, _ *model.PaymentIntent) error {
	f.cancelCalls++
	return nil
}

func (f *fakeReader) CollectInteracRefund(_ context.Context, _ *model.RefundParams) <-chan model.RefundResult {
	ch := make(chan model.RefundResult)
	close(ch)
	return ch
}

func (f *fakeReader) ProcessInteracRefund(_ context.Context) <-chan model.RefundResult {
	ch := make(chan model.RefundResult)
	close(ch)
	return ch
}

func (f *fakeReader) DisplayMessages() <-chan model.ReaderDisplayMessage { return nil }
func (f *fakeReader) BatteryStatus() <-chan model.ReaderBatteryStatus    { return nil }

// fakeGateway scripts the capture outcome.
type fakeGateway struct {
	captureResult model.CaptureResult
	customerID    string
	chargeID      string

	captureCalls int
}

func (f *fakeGateway) CapturePaymentIntent(_ context.Context, _ int64, _ string) model.CaptureResult {
	f.captureCalls++
	return f.captureResult
}

func (f *fakeGateway) FetchCustomerIDForOrder(_ context.Context, _ int64) (string, error) {
	return f.customerID, nil
}

func (f *fakeGateway) FetchChargeID(_ context.Context, _ int64) (string, error) {
	return f.chargeID, nil
}

func intentAt(status model.IntentStatus, receiptURL string) *model.PaymentIntent {
	return &model.PaymentIntent{
		ID:         "pi_123",
		Status:     status,
		Amount:     1072,
		Currency:   "gbp",
		ReceiptURL: receiptURL,
	}
}

func testParams() *model.PaymentParams {
	return &model.PaymentParams{
		Amount:      1072,
		Currency:    "gbp",
		OrderID:     191,
		OrderKey:    "wc_order_abc",
		CountryCode: "GB",
	}
}

func happyReader() *fakeReader {
	return &fakeReader{
		status:     model.ReaderConnected,
		createRes:  model.IntentResult{Intent: intentAt(model.IntentRequiresPaymentMethod, "")},
		collectRes: model.IntentResult{Intent: intentAt(model.IntentRequiresConfirmation, "")},
		processRes: model.IntentResult{Intent: intentAt(model.IntentRequiresCapture, "https://r.example/1")},
	}
}

func drain(ch <-chan Event) []Event {
	var events []Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func phases(events []Event) []Phase {
	out := make([]Phase, len(events))
	for i, ev := range events {
		out[i] = ev.Phase
	}
	return out
}

func TestAcceptPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path emits the full phase sequence", func(t *testing.T) {
		reader := happyReader()
		gw := &fakeGateway{captureResult: model.CaptureSuccess}
		m := NewManager(reader, gw, gbCountries(), false, zap.NewNop())

		events := drain(m.AcceptPayment(ctx, testParams()))

		require.Equal(t, []Phase{PhaseInitializing, PhaseCollecting, PhaseProcessing, PhaseCapturing, PhaseCompleted}, phases(events))
		assert.Equal(t, "https://r.example/1", events[len(events)-1].ReceiptURL)
		assert.Equal(t, 1, reader.createCalls)
		assert.Equal(t, 1, reader.collectCalls)
		assert.Equal(t, 1, reader.processCalls)
		assert.Equal(t, 1, gw.captureCalls)
	})

	t.Run("already captured counts as success", func(t *testing.T) {
		reader := happyReader()
		gw := &fakeGateway{captureResult: model.CaptureAlreadyCaptured}
		m := NewManager(reader, gw, gbCountries(), false, zap.NewNop())

		events := drain(m.AcceptPayment(ctx, testParams()))

		require.NotEmpty(t, events)
		assert.Equal(t, PhaseCompleted, events[len(events)-1].Phase)
	})

	t.Run("unsupported currency fails before touching the reader", func(t *testing.T) {
		reader := happyReader()
		m := NewManager(reader, &fakeGateway{}, gbCountries(), false, zap.NewNop())

		params := testParams()
		params.Currency = "usd"
		events := drain(m.AcceptPayment(ctx, params))

		require.Len(t, events, 1)
		assert.Equal(t, PhaseFailed, events[0].Phase)
		require.NotNil(t, events[0].Failure)
		assert.Equal(t, KindCurrencyNotSupported, events[0].Failure.Kind)
		assert.Equal(t, 0, reader.createCalls)
	})

	t.Run("disconnected reader fails before intent creation", func(t *testing.T) {
		reader := happyReader()
		reader.status = model.ReaderNotConnected
		m := NewManager(reader, &fakeGateway{}, gbCountries(), false, zap.NewNop())

		events := drain(m.AcceptPayment(ctx, testParams()))

		require.Len(t, events, 1)
		assert.Equal(t, PhaseFailed, events[0].Phase)
		assert.Equal(t, 0, reader.createCalls)
	})

	t.Run("customer id enriches the intent params", func(t *testing.T) {
		reader := happyReader()
		gw := &fakeGateway{captureResult: model.CaptureSuccess, customerID: "cus_9"}
		m := NewManager(reader, gw, gbCountries(), false, zap.NewNop())

		drain(m.AcceptPayment(ctx, testParams()))

		require.NotNil(t, reader.lastParams)
		assert.Equal(t, "cus_9", reader.lastParams.CustomerID)
	})

	t.Run("collect decline fails with a resumable handle and never processes", func(t *testing.T) {
		reader := happyReader()
		reader.collectRes = model.IntentResult{Err: &model.ReaderError{
			Type:          model.ReaderErrCardDeclined,
			DeclineReason: "insufficient_funds",
		}}
		gw := &fakeGateway{}
		m := NewManager(reader, gw, gbCountries(), false, zap.NewNop())

		events := drain(m.AcceptPayment(ctx, testParams()))

		require.Equal(t, []Phase{PhaseInitializing, PhaseCollecting, PhaseFailed}, phases(events))
		last := events[len(events)-1]
		require.NotNil(t, last.Failure)
		assert.Equal(t, KindDeclinedInsufficientFunds, last.Failure.Kind)
		assert.True(t, last.Failure.CanRetry())
		require.NotNil(t, last.Resumable)
		assert.Equal(t, model.IntentRequiresPaymentMethod, last.Resumable.Intent.Status)
		assert.Equal(t, 0, reader.processCalls)
		assert.Equal(t, 0, gw.captureCalls)
	})

	t.Run("cancellation during collect ends with canceled, no failure", func(t *testing.T) {
		reader := happyReader()
		reader.collectRes = model.IntentResult{Err: &model.ReaderError{Type: model.ReaderErrCanceled}}
		m := NewManager(reader, &fakeGateway{}, gbCountries(), false, zap.NewNop())

		events := drain(m.AcceptPayment(ctx, testParams()))

		require.Equal(t, []Phase{PhaseInitializing, PhaseCollecting, PhaseCanceled}, phases(events))
		assert.Nil(t, events[len(events)-1].Failure)
	})

	t.Run("capture network error is retryable with a handle", func(t *testing.T) {
		reader := happyReader()
		gw := &fakeGateway{captureResult: model.CaptureNetworkError}
		m := NewManager(reader, gw, gbCountries(), false, zap.NewNop())

		events := drain(m.AcceptPayment(ctx, testParams()))

		last := events[len(events)-1]
		require.Equal(t, PhaseFailed, last.Phase)
		require.NotNil(t, last.Failure)
		assert.Equal(t, KindNoNetwork, last.Failure.Kind)
		assert.True(t, last.Failure.CanRetry())
		require.NotNil(t, last.Resumable)
		assert.Equal(t, model.IntentRequiresCapture, last.Resumable.Intent.Status)
	})

	t.Run("capture without a receipt url fails without a handle", func(t *testing.T) {
		reader := happyReader()
		reader.processRes = model.IntentResult{Intent: intentAt(model.IntentRequiresCapture, "")}
		gw := &fakeGateway{captureResult: model.CaptureSuccess}
		m := NewManager(reader, gw, gbCountries(), false, zap.NewNop())

		events := drain(m.AcceptPayment(ctx, testParams()))

		last := events[len(events)-1]
		require.Equal(t, PhaseFailed, last.Phase)
		require.NotNil(t, last.Failure)
		assert.Equal(t, KindGeneric, last.Failure.Kind)
		assert.Nil(t, last.Resumable)
	})

	t.Run("unexpected intent status ends the flow without a terminal event", func(t *testing.T) {
		reader := happyReader()
		reader.createRes = model.IntentResult{Intent: intentAt(model.IntentSucceeded, "")}
		m := NewManager(reader, &fakeGateway{}, gbCountries(), false, zap.NewNop())

		events := drain(m.AcceptPayment(ctx, testParams()))

		require.Equal(t, []Phase{PhaseInitializing}, phases(events))
	})
}

func TestRetryPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("resumes at processing without re-creating the intent", func(t *testing.T) {
		reader := happyReader()
		gw := &fakeGateway{captureResult: model.CaptureSuccess}
		m := NewManager(reader, gw, gbCountries(), false, zap.NewNop())

		resumable := &model.ResumablePayment{Intent: intentAt(model.IntentRequiresConfirmation, "")}
		events := drain(m.RetryPayment(ctx, 191, resumable))

		require.Equal(t, []Phase{PhaseProcessing, PhaseCapturing, PhaseCompleted}, phases(events))
		assert.Equal(t, 0, reader.createCalls)
		assert.Equal(t, 0, reader.collectCalls)
		assert.Equal(t, 1, reader.processCalls)
	})

	t.Run("resumes at capture only", func(t *testing.T) {
		reader := happyReader()
		gw := &fakeGateway{captureResult: model.CaptureSuccess}
		m := NewManager(reader, gw, gbCountries(), false, zap.NewNop())

		resumable := &model.ResumablePayment{Intent: intentAt(model.IntentRequiresCapture, "https://r.example/1")}
		events := drain(m.RetryPayment(ctx, 191, resumable))

		require.Equal(t, []Phase{PhaseCapturing, PhaseCompleted}, phases(events))
		assert.Equal(t, 0, reader.processCalls)
		assert.Equal(t, 1, gw.captureCalls)
	})

	t.Run("retried attempt maps errors with the country minimum", func(t *testing.T) {
		reader := happyReader()
		reader.collectRes = model.IntentResult{Err: &model.ReaderError{Type: model.ReaderErrAmountTooSmall}}
		m := NewManager(reader, &fakeGateway{}, gbCountries(), false, zap.NewNop())

		resumable := &model.ResumablePayment{
			Intent:      intentAt(model.IntentRequiresPaymentMethod, ""),
			CountryCode: "GB",
		}
		events := drain(m.RetryPayment(ctx, 191, resumable))

		last := events[len(events)-1]
		require.Equal(t, PhaseFailed, last.Phase)
		require.NotNil(t, last.Failure)
		assert.Equal(t, KindAmountTooSmall, last.Failure.Kind)
		assert.Contains(t, last.Failure.Message, "£0.30")
	})

	t.Run("handles carry the merchant country for later retries", func(t *testing.T) {
		reader := happyReader()
		reader.collectRes = model.IntentResult{Err: &model.ReaderError{
			Type:          model.ReaderErrCardDeclined,
			DeclineReason: "insufficient_funds",
		}}
		m := NewManager(reader, &fakeGateway{}, gbCountries(), false, zap.NewNop())

		events := drain(m.AcceptPayment(ctx, testParams()))

		last := events[len(events)-1]
		require.NotNil(t, last.Resumable)
		assert.Equal(t, "GB", last.Resumable.CountryCode)
	})

	t.Run("nil resumable closes the stream without events", func(t *testing.T) {
		m := NewManager(happyReader(), &fakeGateway{}, gbCountries(), false, zap.NewNop())
		events := drain(m.RetryPayment(ctx, 191, nil))
		assert.Empty(t, events)
	})
}

func TestCancelPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels while awaiting a payment method", func(t *testing.T) {
		reader := happyReader()
		m := NewManager(reader, &fakeGateway{}, gbCountries(), false, zap.NewNop())

		err := m.CancelPayment(ctx, &model.ResumablePayment{Intent: intentAt(model.IntentRequiresPaymentMethod, "")})
		require.NoError(t, err)
		assert.Equal(t, 1, reader.cancelCalls)
	})

	t.Run("no-op once capture is pending", func(t *testing.T) {
		reader := happyReader()
		m := NewManager(reader, &fakeGateway{}, gbCountries(), false, zap.NewNop())

		err := m.CancelPayment(ctx, &model.ResumablePayment{Intent: intentAt(model.IntentRequiresCapture, "")})
		require.NoError(t, err)
		assert.Equal(t, 0, reader.cancelCalls)
	})

	t.Run("no-op without a handle", func(t *testing.T) {
		reader := happyReader()
		m := NewManager(reader, &fakeGateway{}, gbCountries(), false, zap.NewNop())

		require.NoError(t, m.CancelPayment(ctx, nil))
		assert.Equal(t, 0, reader.cancelCalls)
	})
}
