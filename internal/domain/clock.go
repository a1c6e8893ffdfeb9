package domain

import "github.com/jonboulle/clockwork"

// clock is a package-level time source so tests can freeze time via SetClock.
// Removal detection and wind freshness checks depend on "now", so tests
// inject a fake clock for deterministic grace-window behavior.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Clock returns the active time source. Packages that reason about "now"
// (removal detection, scoring timestamps, freshness windows) read through
// this so a single SetClock freezes the whole system under test.
func Clock() clockwork.Clock {
	return clock
}
