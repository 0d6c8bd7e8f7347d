package outbound

import (
	"context"

	"github.com/storekit/cardpay/internal/model"
)

// PaymentGatewayPort is the store backend's payment surface consumed by the
// orchestration core.
type PaymentGatewayPort interface {
	// CapturePaymentIntent finalizes an authorized charge. A result of
	// model.CaptureAlreadyCaptured must be treated as success by callers.
	CapturePaymentIntent(ctx context.Context, orderID int64, intentID string) model.CaptureResult

	// FetchCustomerIDForOrder resolves the backend customer id for an order,
	// used to enrich payment params before intent creation. An empty id with
	// nil error means no customer is known.
	FetchCustomerIDForOrder(ctx context.Context, orderID int64) (string, error)

	// FetchChargeID returns the charge id of the order's original payment,
	// required before an Interac refund may start.
	FetchChargeID(ctx context.Context, orderID int64) (string, error)
}

// OrderRepositoryPort reads store orders. The payment core never mutates an
// order directly; paid status is reflected by the backend and picked up via
// FetchOrderByID.
type OrderRepositoryPort interface {
	// FetchOrderByID fetches the order from the store backend.
	FetchOrderByID(ctx context.Context, id int64) (*model.Order, error)

	// GetOrderByID returns the locally cached order, if any.
	GetOrderByID(ctx context.Context, id int64) (*model.Order, error)

	// InvalidateOrder drops the cached copy so the next read hits the backend.
	InvalidateOrder(ctx context.Context, id int64) error
}

// OrderCachePort caches fetched orders for the controller's cached reads.
type OrderCachePort interface {
	Get(ctx context.Context, id int64) (*model.Order, error)
	Set(ctx context.Context, order *model.Order) error
	Delete(ctx context.Context, id int64) error
}

// ProductCatalogPort answers the single I/O question collectibility needs.
type ProductCatalogPort interface {
	// OrderHasSubscriptionItems reports whether any line item of the order
	// is a subscription product.
	OrderHasSubscriptionItems(ctx context.Context, orderID int64) (bool, error)
}

// CountryConfigPort resolves a merchant country into currency-support and
// minimum-charge configuration.
type CountryConfigPort interface {
	// ConfigFor returns the configuration for a country code, or
	// ErrCountryNotSupported when in-person payments are unavailable there.
	ConfigFor(countryCode string) (*model.CountryConfig, error)
}
