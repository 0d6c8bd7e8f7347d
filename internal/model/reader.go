package model

// ReaderConnectionStatus represents the connection state of the card reader.
type ReaderConnectionStatus string

const (
	ReaderNotConnected ReaderConnectionStatus = "not_connected"
	ReaderConnecting   ReaderConnectionStatus = "connecting"
	ReaderConnected    ReaderConnectionStatus = "connected"
)

// ReaderErrorType is the raw hardware/backend error taxonomy surfaced by the
// reader SDK. It is mapped once at the state-machine boundary into a
// user-facing failure kind.
type ReaderErrorType string

const (
	ReaderErrNoNetwork             ReaderErrorType = "no_network"
	ReaderErrServer                ReaderErrorType = "server_error"
	ReaderErrGeneric               ReaderErrorType = "generic_error"
	ReaderErrCanceled              ReaderErrorType = "canceled"
	ReaderErrCardDeclined          ReaderErrorType = "card_declined"
	ReaderErrAmountTooSmall        ReaderErrorType = "amount_too_small"
	ReaderErrNfcDisabled           ReaderErrorType = "nfc_disabled"
	ReaderErrDeviceNotSupported    ReaderErrorType = "device_not_supported"
	ReaderErrInvalidAppSetup       ReaderErrorType = "invalid_app_setup"
	ReaderErrAppKilledInBackground ReaderErrorType = "app_killed_in_background"
)

// ReaderError is a raw error raised by the reader SDK or the payment backend.
// DeclineReason carries the processor decline code when Type is
// ReaderErrCardDeclined (e.g. "insufficient_funds", "call_issuer").
type ReaderError struct {
	Type          ReaderErrorType
	DeclineReason string
	Message       string
}

// Error implements the error interface.
func (e *ReaderError) Error() string {
	if e.DeclineReason != "" {
		return string(e.Type) + ": " + e.DeclineReason
	}
	return string(e.Type)
}

// IntentResult is one event on a create/collect/process status stream.
// Exactly one of Intent or Err is set on the terminal event.
type IntentResult struct {
	Intent *PaymentIntent
	Err    *ReaderError
}

// RefundResult is one event on an Interac refund status stream.
type RefundResult struct {
	Err *ReaderError
}

// ReaderDisplayMessage is an additional-info hint from the hardware. It only
// affects presentation hint text, never the flow phase.
type ReaderDisplayMessage string

const (
	DisplayMsgRetryCard             ReaderDisplayMessage = "retry_card"
	DisplayMsgInsertCard            ReaderDisplayMessage = "insert_card"
	DisplayMsgInsertOrSwipeCard     ReaderDisplayMessage = "insert_or_swipe_card"
	DisplayMsgSwipeCard             ReaderDisplayMessage = "swipe_card"
	DisplayMsgRemoveCard            ReaderDisplayMessage = "remove_card"
	DisplayMsgMultipleCardsDetected ReaderDisplayMessage = "multiple_cards_detected"
	DisplayMsgTryAnotherMethod      ReaderDisplayMessage = "try_another_read_method"
	DisplayMsgTryAnotherCard        ReaderDisplayMessage = "try_another_card"
	DisplayMsgCheckMobileDevice     ReaderDisplayMessage = "check_mobile_device"
)

// ReaderBatteryStatus is a battery level report from the hardware reader.
type ReaderBatteryStatus struct {
	Level      float64 // 0.0 - 1.0
	IsCharging bool
}

// CaptureResult is the outcome of the backend capture endpoint.
type CaptureResult string

const (
	CaptureSuccess         CaptureResult = "success"
	CaptureAlreadyCaptured CaptureResult = "already_captured"
	CaptureNetworkError    CaptureResult = "network_error"
	CaptureGenericError    CaptureResult = "generic_error"
	CaptureMissingOrder    CaptureResult = "missing_order"
	CaptureError           CaptureResult = "capture_error"
	CaptureServerError     CaptureResult = "server_error"
)
