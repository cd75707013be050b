package scheduler

import "errors"

var (
	// ErrBusy is returned when a node already has an activity in flight.
	// Recoverable; the caller should skip or wait for the current activity.
	ErrBusy = errors.New("node already has an activity in flight")

	// ErrAttemptsExhausted wraps the last activity failure once the retry
	// budget is spent. It is also recorded in the scheduler's terminal error
	// mapping for external inspection.
	ErrAttemptsExhausted = errors.New("activity attempts exhausted")
)
