package outbound

import (
	"context"
	"errors"
)

// Shared port errors.
var (
	// ErrCacheMiss is returned when a cached value is not present.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCountryNotSupported is returned when in-person payments are not
	// available for a merchant country.
	ErrCountryNotSupported = errors.New("country not supported")
)

// KVStorePort is an injected key-value store for the small set of values the
// payment core persists (last receipt URL per order, last connected reader id,
// statement descriptor override).
type KVStorePort interface {
	// GetString returns the value for key, or ErrCacheMiss.
	GetString(ctx context.Context, key string) (string, error)

	// SetString stores the value for key.
	SetString(ctx context.Context, key, value string) error
}

// OnboardingCachePort invalidates cached merchant onboarding/eligibility
// state. A payment failure can indicate the merchant's payment setup has
// changed, so the cache is dropped on every terminal failure.
type OnboardingCachePort interface {
	Invalidate(ctx context.Context) error
}

// FeedbackPort is the UI-side effect hook for terminal outcomes.
type FeedbackPort interface {
	// PlaySuccessChime plays the payment-success sound.
	PlaySuccessChime()
}
