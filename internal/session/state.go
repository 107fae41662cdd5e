// Package session manages one authenticated browser session per platform.
//
// State graph:
//
//	logged_out ──► authenticating ──► logged_in ──► closed
//	     │                │                            ▲
//	     │                └──► failed ─────────────────┤
//	     └─────────────────────────────────────────────┘
//
// closed is terminal. failed only moves to closed.
package session

import "fmt"

// State is a session lifecycle state.
type State string

const (
	StateLoggedOut      State = "logged_out"
	StateAuthenticating State = "authenticating"
	StateLoggedIn       State = "logged_in"
	StateFailed         State = "failed"
	StateClosed         State = "closed"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[State][]State{
	StateLoggedOut:      {StateAuthenticating, StateClosed},
	StateAuthenticating: {StateLoggedIn, StateFailed, StateClosed},
	StateLoggedIn:       {StateClosed},
	StateFailed:         {StateClosed},
}

// IsTransitionAllowed returns true when moving from → to is permitted.
func IsTransitionAllowed(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionError reports an illegal state change.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session: illegal transition %s -> %s", e.From, e.To)
}
