package relay

// State is a session's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateProcessing
	StateClosing
	StateClosed
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateStreaming:
		return "STREAMING"
	case StateProcessing:
		return "PROCESSING"
	case StateClosing:
		return "CLOSING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// validTransitions defines the allowed lifecycle moves for a session.
// PROCESSING allows a self-move because a second final transcript may
// arrive while an earlier pipeline run is still in flight.
var validTransitions = map[State][]State{
	StateIdle:       {StateStreaming, StateClosing},
	StateStreaming:  {StateProcessing, StateIdle, StateClosing},
	StateProcessing: {StateProcessing, StateStreaming, StateIdle, StateClosing},
	StateClosing:    {StateClosed},
	StateClosed:     {},
}

// transitionValid checks if a state transition is allowed.
func transitionValid(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError represents a lifecycle move the session state
// machine does not allow.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid session transition from " + e.From.String() + " to " + e.To.String()
}
