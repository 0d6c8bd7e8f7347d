package payment

// Phase is the lifecycle phase of a single payment attempt.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseInitializing Phase = "initializing"
	PhaseCollecting   Phase = "collecting"
	PhaseProcessing   Phase = "processing"
	PhaseCapturing    Phase = "capturing"
	PhaseCompleted    Phase = "completed"
	PhaseFailed       Phase = "failed"
	PhaseCanceled     Phase = "canceled"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// IsTerminal returns true if no further phase can follow.
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed || p == PhaseCanceled
}

// phaseTransitions defines valid phase transitions. Retry entry may land
// mid-flow from Idle at the stage recorded on the resumable handle.
// Cancellation is only reachable before processing begins; once the backend
// call is in flight the attempt runs to completion or failure.
var phaseTransitions = map[Phase][]Phase{
	PhaseIdle:         {PhaseInitializing, PhaseCollecting, PhaseProcessing, PhaseCapturing, PhaseFailed},
	PhaseInitializing: {PhaseCollecting, PhaseFailed, PhaseCanceled},
	PhaseCollecting:   {PhaseProcessing, PhaseFailed, PhaseCanceled},
	PhaseProcessing:   {PhaseCapturing, PhaseFailed},
	PhaseCapturing:    {PhaseCompleted, PhaseFailed},
	PhaseCompleted:    {}, // Terminal state
	PhaseFailed:       {}, // Terminal state
	PhaseCanceled:     {}, // Terminal state
}

// CanTransitionTo checks if a transition from the current phase to target is valid.
func (p Phase) CanTransitionTo(target Phase) bool {
	allowed, ok := phaseTransitions[p]
	if !ok {
		return false
	}
	for _, a := range allowed {
		if a == target {
			return true
		}
	}
	return false
}
