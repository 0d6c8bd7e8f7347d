package model

// IntentStatus mirrors the status machine of a backend payment intent.
type IntentStatus string

const (
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentRequiresCapture       IntentStatus = "requires_capture"
	IntentSucceeded             IntentStatus = "succeeded"
	IntentCanceled              IntentStatus = "canceled"
)

// PaymentIntent is the backend-side resource representing one attempted charge.
type PaymentIntent struct {
	ID         string
	Status     IntentStatus
	Amount     int64
	Currency   string
	ReceiptURL string
	ChargeID   string
}

// ResumablePayment is the opaque handle that lets a failed or interrupted
// attempt resume at the stage implied by the wrapped intent's status instead
// of restarting from intent creation.
type ResumablePayment struct {
	Intent *PaymentIntent
	// CountryCode is the merchant country the attempt was created under; a
	// resumed attempt maps errors against the same country configuration.
	CountryCode string
}

// PaymentParams is the immutable description of what is being charged.
// It is constructed once per attempt.
type PaymentParams struct {
	Amount              int64 // smallest currency unit
	Currency            string
	OrderID             int64
	OrderKey            string
	CustomerEmail       string
	CustomerName        string
	StoreName           string
	SiteURL             string
	StatementDescriptor string
	CountryCode         string
	FeeAmount           *int64 // optional flat per-country surcharge
	CustomerID          string // resolved prior to intent creation when available
}

// RefundParams describes an Interac card-present refund.
type RefundParams struct {
	ChargeID string
	Amount   int64 // smallest currency unit
	Currency string
	OrderID  int64
}

// CountryConfig resolves a merchant country into currency support and
// minimum-charge configuration.
type CountryConfig struct {
	CountryCode         string
	SupportedCurrencies []string
	MinChargeAmount     map[string]int64 // per currency, smallest unit
	SupportsTapToPay    bool
	SupportsInterac     bool
	FlatFeeAmount       int64 // flat per-transaction surcharge, smallest unit; 0 = none
}

// IsCurrencySupported reports whether the currency can be charged in this country.
func (c *CountryConfig) IsCurrencySupported(currency string) bool {
	for _, cur := range c.SupportedCurrencies {
		if cur == currency {
			return true
		}
	}
	return false
}

// MinChargeFor returns the minimum chargeable amount for the currency,
// or zero when no minimum is configured.
func (c *CountryConfig) MinChargeFor(currency string) int64 {
	if c.MinChargeAmount == nil {
		return 0
	}
	return c.MinChargeAmount[currency]
}
