package domain

import "testing"

func TestCanTransition(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to RideStatus
		want     bool
	}{
		{RideStatusRequested, RideStatusAccepted, true},
		{RideStatusAccepted, RideStatusOngoing, true},
		{RideStatusOngoing, RideStatusCompleted, true},

		{RideStatusRequested, RideStatusCancelled, true},
		{RideStatusAccepted, RideStatusCancelled, true},
		{RideStatusOngoing, RideStatusCancelled, true},

		// No skips.
		{RideStatusRequested, RideStatusOngoing, false},
		{RideStatusRequested, RideStatusCompleted, false},
		{RideStatusAccepted, RideStatusCompleted, false},

		// No backward moves.
		{RideStatusAccepted, RideStatusRequested, false},
		{RideStatusOngoing, RideStatusAccepted, false},

		// Terminal states admit nothing.
		{RideStatusCompleted, RideStatusCancelled, false},
		{RideStatusCancelled, RideStatusCancelled, false},
		{RideStatusCompleted, RideStatusAccepted, false},
		{RideStatusCancelled, RideStatusAccepted, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	t.Parallel()

	for status, want := range map[RideStatus]bool{
		RideStatusRequested: false,
		RideStatusAccepted:  false,
		RideStatusOngoing:   false,
		RideStatusCompleted: true,
		RideStatusCancelled: true,
	} {
		if got := Terminal(status); got != want {
			t.Errorf("Terminal(%s) = %v, want %v", status, got, want)
		}
	}
}
