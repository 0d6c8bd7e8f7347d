package refund

import (
	"github.com/storekit/cardpay/internal/model"
	"github.com/storekit/cardpay/internal/port/outbound"
	"go.uber.org/zap"
)

// RefundabilityChecker decides whether an order may be refunded through the
// card-present Interac flow. Deterministic given identical inputs.
type RefundabilityChecker struct {
	countries   outbound.CountryConfigPort
	countryCode string
	logger      *zap.Logger
}

// NewRefundabilityChecker creates a refundability checker for the merchant's country.
func NewRefundabilityChecker(countries outbound.CountryConfigPort, countryCode string, logger *zap.Logger) *RefundabilityChecker {
	return &RefundabilityChecker{countries: countries, countryCode: countryCode, logger: logger}
}

// IsRefundable returns true iff the order is not yet fully refunded, the
// currency is supported for the merchant country with Interac available, and
// the original payment's charge id is present.
func (c *RefundabilityChecker) IsRefundable(order *model.Order, chargeID string) bool {
	if chargeID == "" {
		return false
	}
	if order.RefundTotal >= order.Total {
		return false
	}
	cfg, err := c.countries.ConfigFor(c.countryCode)
	if err != nil {
		c.logger.Warn("country config unavailable",
			zap.String("country", c.countryCode), zap.Error(err))
		return false
	}
	if !cfg.SupportsInterac {
		return false
	}
	return cfg.IsCurrencySupported(order.Currency)
}
