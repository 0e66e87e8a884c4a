package session

import "sync"

// State is one protocol state of a session. Transitions are totally
// ordered: a session is in exactly one state at a time and every
// transition is validated against the table below.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConfigured
	StateStreaming
	StateCommitting
	StateResponseInFlight
	StateClosed
	StateError
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateConfigured:
		return "CONFIGURED"
	case StateStreaming:
		return "STREAMING"
	case StateCommitting:
		return "COMMITTING"
	case StateResponseInFlight:
		return "RESPONSE_IN_FLIGHT"
	case StateClosed:
		return "CLOSED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transitions are permitted.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateError
}

// Re-entering CONFIGURED after RESPONSE_IN_FLIGHT permits multiple
// translation turns over one connection.
var validTransitions = map[State][]State{
	StateIdle:             {StateConnecting},
	StateConnecting:       {StateConfigured, StateClosed, StateError},
	StateConfigured:       {StateStreaming, StateClosed, StateError},
	StateStreaming:        {StateCommitting, StateClosed, StateError},
	StateCommitting:       {StateResponseInFlight, StateClosed, StateError},
	StateResponseInFlight: {StateConfigured, StateClosed, StateError},
}

// InvalidTransitionError represents an invalid state transition attempt.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid state transition from " + e.From.String() + " to " + e.To.String()
}

type stateMachine struct {
	mu      sync.Mutex
	current State
}

func newStateMachine() *stateMachine {
	return &stateMachine{current: StateIdle}
}

func (m *stateMachine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func transitionValid(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (m *stateMachine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !transitionValid(m.current, to) {
		return &InvalidTransitionError{From: m.current, To: to}
	}
	m.current = to
	return nil
}

// Force moves to a terminal state regardless of the current state.
// Closing an already failed session and failing a closing one are both
// no-ops.
func (m *stateMachine) Force(to State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.Terminal() {
		return
	}
	m.current = to
}

// In reports whether the current state is one of the given states.
func (m *stateMachine) In(states ...State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range states {
		if m.current == s {
			return true
		}
	}
	return false
}
