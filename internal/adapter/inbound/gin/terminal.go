package gin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storekit/cardpay/internal/controller"
	"github.com/storekit/cardpay/internal/domain/payment"
	"github.com/storekit/cardpay/internal/model"
	"github.com/storekit/cardpay/internal/shared/metrics"
)

// terminalAdapter exposes the in-person payment flow over HTTP. The start
// endpoints block until the attempt reaches a terminal state; progress can be
// observed concurrently via the state endpoint.
type terminalAdapter struct {
	ctrl    controller.Flow
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewTerminalAdapter creates a new terminal HTTP adapter.
func NewTerminalAdapter(ctrl controller.Flow, m *metrics.Metrics, logger *zap.Logger) *terminalAdapter {
	return &terminalAdapter{ctrl: ctrl, metrics: m, logger: logger}
}

// RegisterTerminalRoutes registers terminal payment routes.
func RegisterTerminalRoutes(r *gin.RouterGroup, adapter *terminalAdapter) {
	terminal := r.Group("/terminal")
	{
		terminal.POST("/orders/:order_id/payment", adapter.CollectPayment)
		terminal.POST("/orders/:order_id/refund", adapter.CollectRefund)
		terminal.POST("/retry", adapter.Retry)
		terminal.POST("/cancel", adapter.Cancel)
		terminal.GET("/state", adapter.GetState)
	}
}

func (a *terminalAdapter) CollectPayment(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	if a.ctrl.Busy() {
		a.metrics.RecordPaymentOutcome("rejected")
		handleTerminalError(c, payment.ErrFlowAlreadyActive)
		return
	}

	if err := a.ctrl.CollectPayment(c.Request.Context(), orderID); err != nil {
		a.metrics.RecordPaymentOutcome("rejected")
		handleTerminalError(c, err)
		return
	}

	st := a.ctrl.State()
	a.metrics.RecordPaymentOutcome(string(st.Kind))
	c.JSON(http.StatusOK, st)
}

func (a *terminalAdapter) CollectRefund(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	if a.ctrl.Busy() {
		a.metrics.RecordRefundOutcome("rejected")
		handleTerminalError(c, payment.ErrFlowAlreadyActive)
		return
	}

	if err := a.ctrl.CollectRefund(c.Request.Context(), orderID); err != nil {
		a.metrics.RecordRefundOutcome("rejected")
		handleTerminalError(c, err)
		return
	}

	st := a.ctrl.State()
	a.metrics.RecordRefundOutcome(string(st.Kind))
	c.JSON(http.StatusOK, st)
}

func (a *terminalAdapter) Retry(c *gin.Context) {
	if err := a.ctrl.Retry(c.Request.Context()); err != nil {
		handleTerminalError(c, err)
		return
	}

	c.JSON(http.StatusOK, a.ctrl.State())
}

func (a *terminalAdapter) Cancel(c *gin.Context) {
	if err := a.ctrl.Cancel(c.Request.Context()); err != nil {
		handleTerminalError(c, err)
		return
	}

	c.JSON(http.StatusOK, a.ctrl.State())
}

func (a *terminalAdapter) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, a.ctrl.State())
}

func orderIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    "invalid_order_id",
			Message: "invalid order ID",
		})
		return 0, false
	}
	return id, true
}

// handleTerminalError maps domain errors to HTTP responses.
func handleTerminalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, payment.ErrReaderNotConnected):
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Code:    "reader_not_connected",
			Message: "card reader is not connected",
		})
	case errors.Is(err, payment.ErrOrderNotCollectable):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    "order_not_collectable",
			Message: "order cannot be collected in person",
		})
	case errors.Is(err, payment.ErrCurrencyNotSupported):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    "currency_not_supported",
			Message: "order currency is not supported in this country",
		})
	case errors.Is(err, payment.ErrFlowAlreadyActive):
		c.JSON(http.StatusConflict, model.ErrorResponse{
			Code:    "flow_already_active",
			Message: "another payment flow is already active",
		})
	case errors.Is(err, payment.ErrNothingToRetry):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Code:    "nothing_to_retry",
			Message: "no failed attempt to retry",
		})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Code:    "internal_error",
			Message: "internal error",
		})
	}
}
