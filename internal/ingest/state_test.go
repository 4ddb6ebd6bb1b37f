package ingest

import "testing"

func TestLifecycle_InitialState(t *testing.T) {
	lc := NewLifecycle()

	if lc.State() != StateIdle {
		t.Errorf("expected StateIdle, got %v", lc.State())
	}
}

func TestLifecycle_HappyPath(t *testing.T) {
	lc := NewLifecycle()

	if err := lc.Begin(); err != nil {
		t.Fatalf("Begin: unexpected error: %v", err)
	}
	if lc.State() != StateConnecting {
		t.Errorf("expected StateConnecting, got %v", lc.State())
	}
	if err := lc.Open(); err != nil {
		t.Fatalf("Open: unexpected error: %v", err)
	}
	if lc.State() != StateOpen {
		t.Errorf("expected StateOpen, got %v", lc.State())
	}
	if err := lc.End(); err != nil {
		t.Fatalf("End: unexpected error: %v", err)
	}
	if lc.State() != StateClosed {
		t.Errorf("expected StateClosed, got %v", lc.State())
	}
}

func TestLifecycle_BeginWhileActive(t *testing.T) {
	lc := NewLifecycle()
	lc.Begin()

	if err := lc.Begin(); err != ErrAlreadyActive {
		t.Errorf("expected ErrAlreadyActive while connecting, got %v", err)
	}

	lc.Open()
	if err := lc.Begin(); err != ErrAlreadyActive {
		t.Errorf("expected ErrAlreadyActive while open, got %v", err)
	}
}

func TestLifecycle_BeginFromTerminal(t *testing.T) {
	tests := []struct {
		name  string
		reach func(lc *Lifecycle)
	}{
		{"closed", func(lc *Lifecycle) { lc.Begin(); lc.Open(); lc.End() }},
		{"error", func(lc *Lifecycle) { lc.Begin(); lc.Fail() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := NewLifecycle()
			tt.reach(lc)
			if !lc.State().IsTerminal() {
				t.Fatalf("expected terminal state, got %v", lc.State())
			}
			if err := lc.Begin(); err != nil {
				t.Errorf("expected reconnect to be accepted, got %v", err)
			}
		})
	}
}

func TestLifecycle_InvalidTransitions(t *testing.T) {
	lc := NewLifecycle()

	if err := lc.Open(); err != ErrNotConnecting {
		t.Errorf("Open from idle: expected ErrNotConnecting, got %v", err)
	}
	if err := lc.End(); err != ErrNotActive {
		t.Errorf("End from idle: expected ErrNotActive, got %v", err)
	}
	if err := lc.Fail(); err != ErrNotActive {
		t.Errorf("Fail from idle: expected ErrNotActive, got %v", err)
	}

	lc.Begin()
	lc.Fail()
	if err := lc.Fail(); err != ErrNotActive {
		t.Errorf("second Fail: expected ErrNotActive, got %v", err)
	}
	if lc.State() != StateError {
		t.Errorf("expected StateError to stick, got %v", lc.State())
	}
}

func TestLifecycle_Reset(t *testing.T) {
	lc := NewLifecycle()
	lc.Begin()
	lc.Open()

	if prev := lc.Reset(); prev != StateOpen {
		t.Errorf("expected previous state OPEN, got %v", prev)
	}
	if lc.State() != StateIdle {
		t.Errorf("expected StateIdle after reset, got %v", lc.State())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateIdle, "IDLE"},
		{StateConnecting, "CONNECTING"},
		{StateOpen, "OPEN"},
		{StateClosed, "CLOSED"},
		{StateError, "ERROR"},
		{State(99), "UNKNOWN(99)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_IsActiveAndTerminal(t *testing.T) {
	tests := []struct {
		state      State
		isActive   bool
		isTerminal bool
	}{
		{StateIdle, false, false},
		{StateConnecting, true, false},
		{StateOpen, true, false},
		{StateClosed, false, true},
		{StateError, false, true},
	}

	for _, tt := range tests {
		if got := tt.state.IsActive(); got != tt.isActive {
			t.Errorf("State(%s).IsActive() = %v, want %v", tt.state, got, tt.isActive)
		}
		if got := tt.state.IsTerminal(); got != tt.isTerminal {
			t.Errorf("State(%s).IsTerminal() = %v, want %v", tt.state, got, tt.isTerminal)
		}
	}
}

func TestState_TextRoundTrip(t *testing.T) {
	for st := StateIdle; st <= StateError; st++ {
		text, err := st.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", st, err)
		}
		var got State
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s): %v", text, err)
		}
		if got != st {
			t.Errorf("expected %v, got %v", st, got)
		}
	}

	var s State
	if err := s.UnmarshalText([]byte("SLEEPING")); err == nil {
		t.Error("expected error for unknown state name")
	}
}
