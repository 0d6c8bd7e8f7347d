package payment

import "errors"

var (
	// ErrOrderNotCollectable is returned when the order fails collectibility checks.
	ErrOrderNotCollectable = errors.New("order is not collectable")

	// ErrCurrencyNotSupported is returned when the order currency is not
	// supported for the merchant country. Detected before any reader interaction.
	ErrCurrencyNotSupported = errors.New("currency not supported for country")

	// ErrReaderNotConnected is returned when a flow is started without a
	// connected reader.
	ErrReaderNotConnected = errors.New("card reader not connected")

	// ErrFlowAlreadyActive is returned when a second flow is started while one
	// is already running.
	ErrFlowAlreadyActive = errors.New("payment flow already active")

	// ErrNothingToRetry is returned when retry is requested without a failed attempt.
	ErrNothingToRetry = errors.New("no failed attempt to retry")
)
