package relay

import "testing"

func TestTransitionValid(t *testing.T) {
	tests := []struct {
		from State
		to   State
		want bool
	}{
		{StateIdle, StateStreaming, true},
		{StateIdle, StateClosing, true},
		{StateIdle, StateProcessing, false},
		{StateIdle, StateClosed, false},
		{StateStreaming, StateProcessing, true},
		{StateStreaming, StateIdle, true},
		{StateStreaming, StateClosing, true},
		{StateStreaming, StateClosed, false},
		{StateProcessing, StateProcessing, true},
		{StateProcessing, StateStreaming, true},
		{StateProcessing, StateIdle, true},
		{StateProcessing, StateClosing, true},
		{StateClosing, StateClosed, true},
		{StateClosing, StateStreaming, false},
		{StateClosed, StateIdle, false},
		{StateClosed, StateStreaming, false},
	}

	for _, tt := range tests {
		if got := transitionValid(tt.from, tt.to); got != tt.want {
			t.Errorf("transitionValid(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "IDLE"},
		{StateStreaming, "STREAMING"},
		{StateProcessing, "PROCESSING"},
		{StateClosing, "CLOSING"},
		{StateClosed, "CLOSED"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestInvalidTransitionError(t *testing.T) {
	err := &InvalidTransitionError{From: StateClosed, To: StateStreaming}
	want := "invalid session transition from CLOSED to STREAMING"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
