package actor

import "errors"

// Lifecycle errors are logged, never returned to a callback: per the
// specification, start-already-started and stop-already-stopped are
// no-ops from the caller's perspective.
var (
	ErrAlreadyStarted     = errors.New("container already started")
	ErrAlreadyStopped     = errors.New("container already stopped")
	ErrTransitionInFlight = errors.New("container lifecycle transition in flight")
	ErrInvalidAID         = errors.New("invalid actor identifier")
)
