package domain

import "github.com/jonboulle/clockwork"

// clock stamps ProcessedAt on results; tests and fixture generators freeze it.
var clock = clockwork.NewRealClock()

// SetClock replaces the result timestamp source. Pass nil for the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}
