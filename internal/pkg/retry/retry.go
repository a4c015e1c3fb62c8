package retry

import (
	"context"
	"time"

	"github.com/mbeltza/tripscribe/internal/core/domain"
	"github.com/mbeltza/tripscribe/internal/pkg/metrics"
)

// Scheduler executes operations with bounded exponential backoff. One
// shared instance serves both the fix sink path and the cluster sink
// path; nothing is ever retried forever.
type Scheduler struct {
	maxRetries int
	baseDelay  time.Duration

	// sleep waits for a delay or returns early when ctx is cancelled.
	// Swappable so tests don't spend real time.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Scheduler. maxRetries is the number of re-attempts after
// the first failure; baseDelay is doubled on each attempt, without jitter.
func New(maxRetries int, baseDelay time.Duration) *Scheduler {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Scheduler{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleep:      sleepCtx,
	}
}

// Execute runs op, retrying on failure with delay base*2^attempt. After
// exhausting retries it returns a *domain.RetryExhaustedError wrapping the
// final failure. A cancelled context aborts the backoff wait immediately.
func (s *Scheduler) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.RetryAttempts.Inc()
			delay := s.baseDelay << (attempt - 1)
			if err := s.sleep(ctx, delay); err != nil {
				return err
			}
		}

		if lastErr = op(ctx); lastErr == nil {
			return nil
		}
	}

	metrics.RetryExhaustions.Inc()
	return &domain.RetryExhaustedError{Attempts: s.maxRetries + 1, LastErr: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
