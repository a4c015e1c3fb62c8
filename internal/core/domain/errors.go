package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied means the location capability precondition is
	// unmet. Fatal to starting a session; recoverable by re-requesting.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrNoActiveSession means a transition was requested with no session
	// to apply it to. Caller error, surfaced immediately.
	ErrNoActiveSession = errors.New("no active tracking session")

	// ErrSessionExists means Start was called while a session is live.
	ErrSessionExists = errors.New("tracking session already active")

	// ErrInvalidCoordinate means a sample carried coordinates outside the
	// WGS 84 ranges. The fix is discarded at the ingestion boundary.
	ErrInvalidCoordinate = errors.New("coordinate out of range")

	// ErrFlushIncomplete means Stop gave up waiting for pending fixes to
	// drain. A warning, not a failure: the session still stops and the
	// buffered fixes are retried on the next flush opportunity.
	ErrFlushIncomplete = errors.New("pending fixes not fully flushed before stop")
)

// RetryExhaustedError is returned when an operation kept failing after the
// configured number of backoff retries. It carries the final attempt's
// error; buffered data is never dropped on exhaustion.
type RetryExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error { return e.LastErr }
