package gin

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storekit/cardpay/internal/controller"
	"github.com/storekit/cardpay/internal/domain/payment"
	"github.com/storekit/cardpay/internal/shared/metrics"
)

// fakeFlow scripts the controller surface the adapter drives.
type fakeFlow struct {
	busy       bool
	collectErr error
	state      controller.ViewState

	collectCalls int
}

func (f *fakeFlow) CollectPayment(context.Context, int64) error {
	f.collectCalls++
	return f.collectErr
}

func (f *fakeFlow) CollectRefund(context.Context, int64) error {
	f.collectCalls++
	return f.collectErr
}

func (f *fakeFlow) Retry(context.Context) error  { return nil }
func (f *fakeFlow) Cancel(context.Context) error { return nil }
func (f *fakeFlow) State() controller.ViewState  { return f.state }
func (f *fakeFlow) Busy() bool                   { return f.busy }

var metricsSeq int

// newTestMetrics uses a unique namespace per call; promauto registers against
// the process-wide default registry.
func newTestMetrics() *metrics.Metrics {
	metricsSeq++
	return metrics.New(fmt.Sprintf("terminal_test_%d", metricsSeq))
}

func newTestRouter(flow *fakeFlow) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterTerminalRoutes(r.Group("/api/v1"), NewTerminalAdapter(flow, newTestMetrics(), zap.NewNop()))
	return r
}

func TestCollectPaymentHandler(t *testing.T) {
	t.Run("start while a flow is active is rejected with conflict", func(t *testing.T) {
		flow := &fakeFlow{busy: true}
		r := newTestRouter(flow)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/terminal/orders/191/payment", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "flow_already_active")
		assert.Equal(t, 0, flow.collectCalls)
	})

	t.Run("completed flow returns the final state", func(t *testing.T) {
		flow := &fakeFlow{state: controller.ViewState{Kind: controller.StateSuccess}}
		r := newTestRouter(flow)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/terminal/orders/191/payment", nil)
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"kind":"success"`)
		assert.Equal(t, 1, flow.collectCalls)
	})

	t.Run("rejected start maps the domain error", func(t *testing.T) {
		flow := &fakeFlow{collectErr: payment.ErrOrderNotCollectable}
		r := newTestRouter(flow)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/terminal/orders/191/payment", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "order_not_collectable")
	})

	t.Run("refund start while active is rejected with conflict", func(t *testing.T) {
		flow := &fakeFlow{busy: true}
		r := newTestRouter(flow)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/terminal/orders/191/refund", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, 0, flow.collectCalls)
	})
}

func TestHandleTerminalError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"reader not connected", payment.ErrReaderNotConnected, http.StatusServiceUnavailable},
		{"order not collectable", payment.ErrOrderNotCollectable, http.StatusBadRequest},
		{"currency not supported", payment.ErrCurrencyNotSupported, http.StatusBadRequest},
		{"flow already active", payment.ErrFlowAlreadyActive, http.StatusConflict},
		{"nothing to retry", payment.ErrNothingToRetry, http.StatusBadRequest},
		{"unexpected error", assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			handleTerminalError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), `"code"`)
		})
	}
}

func TestOrderIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("valid id", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "order_id", Value: "191"}}

		id, ok := orderIDParam(c)
		assert.True(t, ok)
		assert.Equal(t, int64(191), id)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "order_id", Value: "abc"}}

		_, ok := orderIDParam(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("non-positive id", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Params = gin.Params{{Key: "order_id", Value: "0"}}

		_, ok := orderIDParam(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
