package app

import "testing"

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from State
		ev   event
		to   State
		ok   bool
	}{
		{StateLoading, evLoaded, StateInProgress, true},
		{StateLoading, evLoadFailed, StateNotFound, true},
		{StateLoading, evSubmit, StateLoading, false},
		{StateInProgress, evSubmit, StateSubmitting, true},
		{StateInProgress, evLeave, StateConfirmingLeave, true},
		{StateConfirmingLeave, evStay, StateInProgress, true},
		{StateConfirmingLeave, evAbandon, StateAbandoned, true},
		{StateConfirmingLeave, evSubmit, StateSubmitting, true},
		{StateSubmitting, evSubmit, StateSubmitting, false},
		{StateSubmitting, evSubmitted, StateSubmitted, true},
		{StateSubmitting, evSubmitFailed, StateInProgress, true},
		{StateSubmitting, evAuthExpired, StateAuthExpired, true},
		{StateSubmitted, evSubmit, StateSubmitted, false},
		{StateAuthExpired, evSubmit, StateAuthExpired, false},
	}
	for _, tc := range cases {
		to, ok := transition(tc.from, tc.ev)
		if to != tc.to || ok != tc.ok {
			t.Fatalf("transition(%s, %d) = (%s, %v), want (%s, %v)", tc.from, tc.ev, to, ok, tc.to, tc.ok)
		}
	}
}

func TestPercentRoundsHalfUp(t *testing.T) {
	cases := []struct{ correct, total, want int }{
		{2, 3, 67},
		{1, 3, 33},
		{1, 8, 13}, // 12.5
		{0, 0, 0},
		{5, 5, 100},
	}
	for _, tc := range cases {
		if got := Percent(tc.correct, tc.total); got != tc.want {
			t.Fatalf("Percent(%d, %d) = %d, want %d", tc.correct, tc.total, got, tc.want)
		}
	}
}
