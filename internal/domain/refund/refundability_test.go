package refund

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/storekit/cardpay/internal/model"
	"github.com/storekit/cardpay/internal/port/outbound"
)

type stubCountries struct {
	cfg *model.CountryConfig
	err error
}

func (s *stubCountries) ConfigFor(string) (*model.CountryConfig, error) {
	return s.cfg, s.err
}

func caCountries() *stubCountries {
	return &stubCountries{cfg: &model.CountryConfig{
		CountryCode:         "CA",
		SupportedCurrencies: []string{"cad"},
		SupportsInterac:     true,
	}}
}

func refundableOrder() *model.Order {
	return &model.Order{ID: 7, Currency: "cad", Total: 1000, RefundTotal: 0}
}

func TestIsRefundable(t *testing.T) {
	t.Run("paid interac order with a charge id is refundable", func(t *testing.T) {
		c := NewRefundabilityChecker(caCountries(), "CA", zap.NewNop())
		assert.True(t, c.IsRefundable(refundableOrder(), "ch_1"))
	})

	t.Run("missing charge id", func(t *testing.T) {
		c := NewRefundabilityChecker(caCountries(), "CA", zap.NewNop())
		assert.False(t, c.IsRefundable(refundableOrder(), ""))
	})

	t.Run("fully refunded", func(t *testing.T) {
		c := NewRefundabilityChecker(caCountries(), "CA", zap.NewNop())
		order := refundableOrder()
		order.RefundTotal = order.Total
		assert.False(t, c.IsRefundable(order, "ch_1"))
	})

	t.Run("country without interac", func(t *testing.T) {
		countries := caCountries()
		countries.cfg.SupportsInterac = false
		c := NewRefundabilityChecker(countries, "CA", zap.NewNop())
		assert.False(t, c.IsRefundable(refundableOrder(), "ch_1"))
	})

	t.Run("unsupported currency", func(t *testing.T) {
		c := NewRefundabilityChecker(caCountries(), "CA", zap.NewNop())
		order := refundableOrder()
		order.Currency = "usd"
		assert.False(t, c.IsRefundable(order, "ch_1"))
	})

	t.Run("country config unavailable", func(t *testing.T) {
		c := NewRefundabilityChecker(&stubCountries{err: outbound.ErrCountryNotSupported}, "CA", zap.NewNop())
		assert.False(t, c.IsRefundable(refundableOrder(), "ch_1"))
	})
}
