package app

import "fmt"

// State is the lifecycle position of a quiz session.
type State int

const (
	StateLoading State = iota
	StateInProgress
	// StateConfirmingLeave is the leave-confirmation sub-state of InProgress; the timer keeps running.
	StateConfirmingLeave
	StateSubmitting
	StateSubmitted
	StateNotFound
	// StateAuthExpired is terminal; answers stay available through PendingAnswers.
	StateAuthExpired
	StateAbandoned
)

var stateNames = map[State]string{
	StateLoading:         "loading",
	StateInProgress:      "in_progress",
	StateConfirmingLeave: "confirming_leave",
	StateSubmitting:      "submitting",
	StateSubmitted:       "submitted",
	StateNotFound:        "not_found",
	StateAuthExpired:     "auth_expired",
	StateAbandoned:       "abandoned",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	switch s {
	case StateSubmitted, StateNotFound, StateAuthExpired, StateAbandoned:
		return true
	}
	return false
}

func (s State) timerRunning() bool {
	return s == StateInProgress || s == StateConfirmingLeave
}

type event int

const (
	evLoaded event = iota
	evLoadFailed
	evLeave
	evStay
	evAbandon
	evSubmit
	evSubmitted
	evSubmitFailed
	evAuthExpired
)

// transition is the only place session states change.
func transition(from State, ev event) (State, bool) {
	switch from {
	case StateLoading:
		switch ev {
		case evLoaded:
			return StateInProgress, true
		case evLoadFailed:
			return StateNotFound, true
		}
	case StateInProgress:
		switch ev {
		case evLeave:
			return StateConfirmingLeave, true
		case evSubmit:
			return StateSubmitting, true
		}
	case StateConfirmingLeave:
		switch ev {
		case evStay:
			return StateInProgress, true
		case evAbandon:
			return StateAbandoned, true
		case evSubmit:
			return StateSubmitting, true
		}
	case StateSubmitting:
		switch ev {
		case evSubmitted:
			return StateSubmitted, true
		case evSubmitFailed:
			return StateInProgress, true
		case evAuthExpired:
			return StateAuthExpired, true
		}
	}
	return from, false
}
