package feature

import "fmt"

// RolloutEvent triggers a rollout status transition.
type RolloutEvent string

const (
	EventStart    RolloutEvent = "start"
	EventIncrease RolloutEvent = "increase"
	EventComplete RolloutEvent = "complete"
	EventPause    RolloutEvent = "pause"
	EventResume   RolloutEvent = "resume"
	EventRollback RolloutEvent = "rollback"
)

// statusNone is the state of a feature that never had a rollout.
const statusNone RolloutStatus = ""

// lifecycle is the complete rollout transition table. Anything not listed is illegal.
var lifecycle = map[RolloutStatus]map[RolloutEvent]RolloutStatus{
	statusNone: {
		EventStart: StatusInProgress,
	},
	StatusInProgress: {
		EventIncrease: StatusInProgress,
		EventComplete: StatusCompleted,
		EventPause:    StatusPaused,
		EventRollback: StatusRolledBack,
	},
	StatusPaused: {
		EventResume:   StatusInProgress,
		EventRollback: StatusRolledBack,
	},
	StatusCompleted: {
		EventRollback: StatusRolledBack,
	},
	StatusRolledBack: {
		EventStart: StatusInProgress,
	},
}

// NextStatus returns the status reached by firing ev in from, or
// ErrInvalidTransition.
func NextStatus(from RolloutStatus, ev RolloutEvent) (RolloutStatus, error) {
	if to, ok := lifecycle[from][ev]; ok {
		return to, nil
	}
	state := string(from)
	if from == statusNone {
		state = "none"
	}
	return from, fmt.Errorf("%w: cannot %s a rollout in state %s", ErrInvalidTransition, ev, state)
}

// CanFire reports whether ev is legal in from.
func CanFire(from RolloutStatus, ev RolloutEvent) bool {
	_, ok := lifecycle[from][ev]
	return ok
}
