package api

import (
	"fmt"
)

// State represents the run lifecycle state enum
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

func (s State) String() string {
	return string(s)
}

// Terminal reports whether s is a final state, i.e. no transition may leave it.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// stateRank orders states for the monotonicity invariant:
// pending < running < {completed, failed, cancelled}.
var stateRank = map[State]int{
	StatePending:   0,
	StateRunning:   1,
	StateCompleted: 2,
	StateFailed:    2,
	StateCancelled: 2,
}

// CanTransition reports whether moving from s to next is a legal, forward-only
// lifecycle transition. Terminal states accept no transition; a state may
// re-report itself (no-op).
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	cur, ok := stateRank[s]
	if !ok {
		return false
	}
	nxt, ok := stateRank[next]
	if !ok {
		return false
	}
	return nxt >= cur
}

func GetState(s string) (State, error) {
	switch s {
	case string(StatePending):
		return StatePending, nil
	case string(StateRunning):
		return StateRunning, nil
	case string(StateCompleted):
		return StateCompleted, nil
	case string(StateFailed):
		return StateFailed, nil
	case string(StateCancelled):
		return StateCancelled, nil
	default:
		return State(s), fmt.Errorf("invalid run state: %s", s)
	}
}
