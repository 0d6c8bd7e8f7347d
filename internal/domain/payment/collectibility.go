package payment

import (
	"context"

	"github.com/storekit/cardpay/internal/model"
	"github.com/storekit/cardpay/internal/port/outbound"
	"go.uber.org/zap"
)

// GatewayPaymentMethodID is the id the gateway records on orders it charges.
const GatewayPaymentMethodID = "cardpay"

// collectableStatuses are the order statuses an in-person payment may be
// collected for.
var collectableStatuses = map[model.OrderStatus]bool{
	model.OrderStatusPending:    true,
	model.OrderStatusProcessing: true,
	model.OrderStatusOnHold:     true,
	model.OrderStatusAutoDraft:  true,
	model.OrderStatusFailed:     true,
}

// collectablePaymentMethods are the payment methods an order may carry and
// still be charged in person. An empty payment method is intentionally
// collectable: some upstream backends create orders without one.
var collectablePaymentMethods = map[string]bool{
	"":                     true,
	"cod":                  true,
	GatewayPaymentMethodID: true,
}

// CollectibilityChecker decides whether an order may be charged in person.
// Aside from the subscription-membership lookup it is a pure predicate:
// deterministic given identical inputs.
type CollectibilityChecker struct {
	countries   outbound.CountryConfigPort
	catalog     outbound.ProductCatalogPort
	countryCode string
	logger      *zap.Logger
}

// NewCollectibilityChecker creates a new collectibility checker for the
// merchant's country.
func NewCollectibilityChecker(
	countries outbound.CountryConfigPort,
	catalog outbound.ProductCatalogPort,
	countryCode string,
	logger *zap.Logger,
) *CollectibilityChecker {
	return &CollectibilityChecker{
		countries:   countries,
		catalog:     catalog,
		countryCode: countryCode,
		logger:      logger,
	}
}

// IsCollectable returns true iff the order currency is supported for the
// merchant country, the status allows collection, the order is unpaid with a
// positive total, nothing has been refunded, the payment method is one the
// gateway can take over, and no line item is a subscription product.
func (c *CollectibilityChecker) IsCollectable(ctx context.Context, order *model.Order) bool {
	cfg, err := c.countries.ConfigFor(c.countryCode)
	if err != nil {
		c.logger.Warn("country config unavailable",
			zap.String("country", c.countryCode), zap.Error(err))
		return false
	}
	if !cfg.IsCurrencySupported(order.Currency) {
		return false
	}
	if !collectableStatuses[order.Status] {
		return false
	}
	if order.IsPaid() {
		return false
	}
	if order.Total <= 0 {
		return false
	}
	if order.RefundTotal != 0 {
		return false
	}
	if !collectablePaymentMethods[order.PaymentMethod] {
		return false
	}

	hasSubscriptions, err := c.catalog.OrderHasSubscriptionItems(ctx, order.ID)
	if err != nil {
		c.logger.Warn("subscription lookup failed",
			zap.Int64("order_id", order.ID), zap.Error(err))
		return false
	}
	return !hasSubscriptions
}
