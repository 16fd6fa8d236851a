package chat

import (
	"errors"
	"fmt"
)

var (
	// ErrSinkConflict is returned when a turn would have both a callback
	// and a queue consumer. One sink per turn.
	ErrSinkConflict = errors.New("turn already has a consumer sink")

	// ErrConsumed is returned on a second ResponseGenerator or
	// FullResponse call. Consumers are one-shot.
	ErrConsumed = errors.New("turn output already consumed")

	// ErrQueueClosed is returned to a producer writing after EOF.
	ErrQueueClosed = errors.New("response queue closed")

	// ErrAlreadyStarted is returned on a second Begin.
	ErrAlreadyStarted = errors.New("turn already started")

	// ErrCancelled marks a turn aborted by external cancellation.
	ErrCancelled = errors.New("turn cancelled")
)

// FallbackFailedError is raised when a preset-fallback handler aborts
// the retry chain.
type FallbackFailedError struct {
	Reason string
	Cause  error
}

func (e *FallbackFailedError) Error() string {
	return fmt.Sprintf("preset fallback failed: %s (last error: %v)", e.Reason, e.Cause)
}

func (e *FallbackFailedError) Unwrap() error { return e.Cause }

// LoopError wraps a failure of one agent-loop phase with its iteration.
type LoopError struct {
	Phase     string
	Iteration int
	Cause     error
}

func (e *LoopError) Error() string {
	return fmt.Sprintf("agent loop %s failed at iteration %d: %v", e.Phase, e.Iteration, e.Cause)
}

func (e *LoopError) Unwrap() error { return e.Cause }
