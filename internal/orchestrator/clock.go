package orchestrator

import "time"

// Clock abstracts the current time so tests can inject a fixed instant
// instead of racing time.Now(), per SPEC_FULL.md §10's "IDs and clock" note.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real Clock, backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. Used in tests.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }
