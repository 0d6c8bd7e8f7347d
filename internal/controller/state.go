package controller

// StateKind is the presentation phase of the collect screen.
type StateKind string

const (
	StateIdle       StateKind = "idle"
	StateLoading    StateKind = "loading"
	StateCollecting StateKind = "collecting"
	StateProcessing StateKind = "processing"
	StateCapturing  StateKind = "capturing"
	StateSuccess    StateKind = "success"
	StateFailed     StateKind = "failed"
	StateRefetching StateKind = "refetching"
)

// Action is a user-facing recovery or follow-up action.
type Action string

const (
	ActionNone           Action = ""
	ActionRetry          Action = "retry"
	ActionContactSupport Action = "contact_support"
	ActionEnableNfc      Action = "enable_nfc"
	ActionPurchaseReader Action = "purchase_reader"
	ActionAcknowledge    Action = "acknowledge"
	ActionCancel         Action = "cancel"
)

// ViewState is the presentation state rendered from lifecycle events. It is
// written only by the controller and observed read-only by the UI collaborator.
type ViewState struct {
	Kind            StateKind `json:"kind"`
	AmountLabel     string    `json:"amount_label,omitempty"`
	Hint            string    `json:"hint,omitempty"`
	Message         string    `json:"message,omitempty"`
	PrimaryAction   Action    `json:"primary_action,omitempty"`
	SecondaryAction Action    `json:"secondary_action,omitempty"`
	ReceiptURL      string    `json:"receipt_url,omitempty"`
	OrderOutdated   bool      `json:"order_outdated,omitempty"`
}
