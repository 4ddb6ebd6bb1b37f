package ingest

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of the stream connection.
type State int

const (
	// StateIdle - No connection; a connect request is accepted.
	StateIdle State = iota
	// StateConnecting - Connection is being established.
	StateConnecting
	// StateOpen - Connection is established and messages are flowing.
	StateOpen
	// StateClosed - Upstream ended the stream cleanly.
	StateClosed
	// StateError - Transport failed. No retry is attempted.
	StateError
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	case StateError:
		return "ERROR"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsActive returns true if a connection is being established or is open.
func (s State) IsActive() bool {
	return s == StateConnecting || s == StateOpen
}

// IsTerminal returns true if the connection ended (CLOSED or ERROR).
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateError
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateIdle; st <= StateError; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// Errors for invalid state transitions.
var (
	ErrAlreadyActive = errors.New("connection already active")
	ErrNotConnecting = errors.New("connection is not connecting")
	ErrNotActive     = errors.New("connection is not active")
)

// Lifecycle manages the state machine for the single stream connection.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	IDLE ──Begin()──→ CONNECTING ──Open()──→ OPEN ──End()──→ CLOSED
//	  ↑                   │                    │
//	  │                   └──────Fail()────────┴──→ ERROR
//	  └──────────────Reset() from any state──────────┘
//
// Rules:
//   - Begin is accepted from IDLE, CLOSED and ERROR; it is refused while active
//   - Open is only accepted from CONNECTING
//   - Fail and End are only accepted while active
//   - Reset always returns to IDLE
type Lifecycle struct {
	mu    sync.RWMutex
	state State
}

// NewLifecycle creates a lifecycle in IDLE state.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateIdle}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Begin transitions to CONNECTING.
func (l *Lifecycle) Begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsActive() {
		return ErrAlreadyActive
	}
	l.state = StateConnecting
	return nil
}

// Open transitions CONNECTING to OPEN.
func (l *Lifecycle) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateConnecting {
		return ErrNotConnecting
	}
	l.state = StateOpen
	return nil
}

// End transitions an active connection to CLOSED.
func (l *Lifecycle) End() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.state.IsActive() {
		return ErrNotActive
	}
	l.state = StateClosed
	return nil
}

// Fail transitions an active connection to ERROR.
func (l *Lifecycle) Fail() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.state.IsActive() {
		return ErrNotActive
	}
	l.state = StateError
	return nil
}

// Reset returns to IDLE from any state and reports the previous state.
func (l *Lifecycle) Reset() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	prev := l.state
	l.state = StateIdle
	return prev
}
