package payment

import (
	"fmt"

	"github.com/storekit/cardpay/internal/model"
)

// FailureKind is the user-facing failure taxonomy. Every raw reader/backend
// error maps to exactly one kind; unrecognized variants fall back to KindUnknown.
type FailureKind string

const (
	KindNoNetwork             FailureKind = "no_network"
	KindServer                FailureKind = "server_error"
	KindGeneric               FailureKind = "generic_error"
	KindCanceled              FailureKind = "canceled"
	KindAmountTooSmall        FailureKind = "amount_too_small"
	KindCurrencyNotSupported  FailureKind = "currency_not_supported"
	KindUnknown               FailureKind = "unknown"
	KindNfcDisabled           FailureKind = "nfc_disabled"
	KindDeviceNotSupported    FailureKind = "device_not_supported"
	KindInvalidAppSetup       FailureKind = "invalid_app_setup"
	KindAppKilledInBackground FailureKind = "app_killed_in_background"

	KindDeclinedCardNotSupported     FailureKind = "declined_card_not_supported"
	KindDeclinedCurrencyNotSupported FailureKind = "declined_currency_not_supported"
	KindDeclinedDuplicateTransaction FailureKind = "declined_duplicate_transaction"
	KindDeclinedExpiredCard          FailureKind = "declined_expired_card"
	KindDeclinedFraud                FailureKind = "declined_fraud"
	KindDeclinedGeneric              FailureKind = "declined_generic"
	KindDeclinedIncorrectPostalCode  FailureKind = "declined_incorrect_postal_code"
	KindDeclinedInsufficientFunds    FailureKind = "declined_insufficient_funds"
	KindDeclinedInvalidAccount       FailureKind = "declined_invalid_account"
	KindDeclinedInvalidAmount        FailureKind = "declined_invalid_amount"
	KindDeclinedPinRequired          FailureKind = "declined_pin_required"
	KindDeclinedIncorrectPin         FailureKind = "declined_incorrect_pin"
	KindDeclinedTemporary            FailureKind = "declined_temporary"
	KindDeclinedTestCard             FailureKind = "declined_test_card"
	KindDeclinedTestModeLiveCard     FailureKind = "declined_test_mode_live_card"
	KindDeclinedTooManyPinTries      FailureKind = "declined_too_many_pin_tries"
)

// Capability flags what recovery a failure admits. The controller derives the
// offered actions from these flags, never from the kind itself.
type Capability uint8

const (
	CapRetry Capability = 1 << iota
	CapContactSupport
	CapPurchaseHardware
)

// Has reports whether all given flags are set.
func (c Capability) Has(flag Capability) bool {
	return c&flag == flag
}

// Failure is a mapped, user-facing payment failure.
type Failure struct {
	Kind         FailureKind
	Capabilities Capability
	Message      string
}

// CanRetry reports whether the failed attempt may be retried.
func (f Failure) CanRetry() bool {
	return f.Capabilities.Has(CapRetry)
}

// declineMapping maps a processor decline code to a failure kind and its
// capability flags.
type declineMapping struct {
	kind FailureKind
	caps Capability
}

var declineMappings = map[string]declineMapping{
	"card_not_supported":     {KindDeclinedCardNotSupported, CapRetry},
	"currency_not_supported": {KindDeclinedCurrencyNotSupported, CapContactSupport},
	"duplicate_transaction":  {KindDeclinedDuplicateTransaction, 0},
	"expired_card":           {KindDeclinedExpiredCard, CapRetry},

	"call_issuer":        {KindDeclinedFraud, CapContactSupport},
	"fraudulent":         {KindDeclinedFraud, CapContactSupport},
	"merchant_blacklist": {KindDeclinedFraud, CapContactSupport},
	"pickup_card":        {KindDeclinedFraud, CapContactSupport},
	"restricted_card":    {KindDeclinedFraud, CapContactSupport},
	"security_violation": {KindDeclinedFraud, CapContactSupport},
	"stolen_card":        {KindDeclinedFraud, CapContactSupport},
	"lost_card":          {KindDeclinedFraud, CapContactSupport},

	"generic_decline":         {KindDeclinedGeneric, CapRetry},
	"do_not_honor":            {KindDeclinedGeneric, CapRetry},
	"no_action_taken":         {KindDeclinedGeneric, CapRetry},
	"not_permitted":           {KindDeclinedGeneric, CapRetry},
	"service_not_allowed":     {KindDeclinedGeneric, CapRetry},
	"transaction_not_allowed": {KindDeclinedGeneric, CapRetry},

	"incorrect_zip": {KindDeclinedIncorrectPostalCode, CapRetry},

	"insufficient_funds":              {KindDeclinedInsufficientFunds, CapRetry},
	"withdrawal_count_limit_exceeded": {KindDeclinedInsufficientFunds, CapRetry},

	"invalid_account":                   {KindDeclinedInvalidAccount, CapContactSupport},
	"new_account_information_available": {KindDeclinedInvalidAccount, CapContactSupport},

	"invalid_amount": {KindDeclinedInvalidAmount, CapContactSupport},

	"online_or_offline_pin_required": {KindDeclinedPinRequired, CapRetry},
	"offline_pin_required":           {KindDeclinedPinRequired, CapRetry},

	"incorrect_pin": {KindDeclinedIncorrectPin, CapRetry},
	"invalid_pin":   {KindDeclinedIncorrectPin, CapRetry},

	"try_again_later":      {KindDeclinedTemporary, CapRetry},
	"issuer_not_available": {KindDeclinedTemporary, CapRetry},
	"processing_error":     {KindDeclinedTemporary, CapRetry},
	"reenter_transaction":  {KindDeclinedTemporary, CapRetry},

	"testmode_decline":    {KindDeclinedTestCard, CapRetry},
	"test_mode_live_card": {KindDeclinedTestModeLiveCard, CapContactSupport},

	"offline_pin_try_exceeded": {KindDeclinedTooManyPinTries, CapRetry},
	"pin_try_exceeded":         {KindDeclinedTooManyPinTries, CapRetry},
}

// MapError translates a raw reader/backend error into a user-facing failure.
// It is total: every raw variant maps to exactly one kind and a future or
// unrecognized variant maps to KindUnknown. The country config is used to
// interpolate the minimum chargeable amount for "amount too small"; tapToPay
// changes the PIN-required outcome because an on-device NFC reader cannot
// prompt for a PIN.
func MapError(raw *model.ReaderError, cfg *model.CountryConfig, currency string, tapToPay bool) Failure {
	if raw == nil {
		return Failure{Kind: KindUnknown, Message: "unknown payment error"}
	}

	switch raw.Type {
	case model.ReaderErrNoNetwork:
		return Failure{Kind: KindNoNetwork, Capabilities: CapRetry, Message: "no network connection"}
	case model.ReaderErrServer:
		return Failure{Kind: KindServer, Capabilities: CapRetry, Message: "the payment server could not be reached"}
	case model.ReaderErrGeneric:
		return Failure{Kind: KindGeneric, Capabilities: CapRetry, Message: "payment failed"}
	case model.ReaderErrCanceled:
		return Failure{Kind: KindCanceled, Message: "payment canceled"}
	case model.ReaderErrAmountTooSmall:
		return amountTooSmallFailure(cfg, currency)
	case model.ReaderErrNfcDisabled:
		return Failure{Kind: KindNfcDisabled, Message: "NFC is disabled on this device"}
	case model.ReaderErrDeviceNotSupported:
		return Failure{Kind: KindDeviceNotSupported, Capabilities: CapPurchaseHardware, Message: "this device cannot accept card payments"}
	case model.ReaderErrInvalidAppSetup:
		return Failure{Kind: KindInvalidAppSetup, Capabilities: CapContactSupport, Message: "the payment setup is invalid"}
	case model.ReaderErrAppKilledInBackground:
		return Failure{Kind: KindAppKilledInBackground, Capabilities: CapRetry, Message: "the payment was interrupted"}
	case model.ReaderErrCardDeclined:
		return declineFailure(raw.DeclineReason, tapToPay)
	default:
		return Failure{Kind: KindUnknown, Message: "unknown payment error"}
	}
}

func declineFailure(reason string, tapToPay bool) Failure {
	m, ok := declineMappings[reason]
	if !ok {
		return Failure{Kind: KindDeclinedGeneric, Capabilities: CapRetry, Message: "the card was declined"}
	}
	if m.kind == KindDeclinedPinRequired && tapToPay {
		// Tap to Pay cannot prompt for a PIN; the recovery is a hardware reader.
		return Failure{
			Kind:         KindDeclinedPinRequired,
			Capabilities: CapPurchaseHardware,
			Message:      "this card requires a PIN, which Tap to Pay cannot collect",
		}
	}
	return Failure{Kind: m.kind, Capabilities: m.caps, Message: "the card was declined"}
}

func amountTooSmallFailure(cfg *model.CountryConfig, currency string) Failure {
	msg := "the order amount is below the minimum that can be charged"
	if cfg != nil {
		if min := cfg.MinChargeFor(currency); min > 0 {
			msg = fmt.Sprintf("the minimum chargeable amount is %s", FormatAmount(min, currency))
		}
	}
	return Failure{Kind: KindAmountTooSmall, Message: msg}
}
