package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mbeltza/tripscribe/internal/core/domain"
)

func newFake(maxRetries int, base time.Duration) (*Scheduler, *[]time.Duration) {
	var delays []time.Duration
	s := New(maxRetries, base)
	s.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return s, &delays
}

func TestExecute_SucceedsFirstTry(t *testing.T) {
	s, delays := newFake(3, time.Second)

	calls := 0
	err := s.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if len(*delays) != 0 {
		t.Errorf("expected no delays, got %v", *delays)
	}
}

func TestExecute_TwoFailuresThenSuccess(t *testing.T) {
	s, delays := newFake(3, time.Second)

	calls := 0
	err := s.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		if calls <= 2 {
			return errors.New("sink unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}

	want := []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond}
	if len(*delays) != len(want) {
		t.Fatalf("expected %d delays, got %v", len(want), *delays)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Errorf("delay %d: expected %v, got %v", i, d, (*delays)[i])
		}
	}
}

func TestExecute_Exhausted(t *testing.T) {
	s, delays := newFake(3, time.Second)

	sinkErr := errors.New("sink down")
	calls := 0
	err := s.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return sinkErr
	})

	var exhausted *domain.RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected RetryExhaustedError, got %v", err)
	}
	if !errors.Is(err, sinkErr) {
		t.Error("exhausted error should wrap the last failure")
	}
	if exhausted.Attempts != 4 {
		t.Errorf("expected 4 attempts recorded, got %d", exhausted.Attempts)
	}
	if calls != 4 {
		t.Errorf("expected 4 calls (1 + 3 retries), got %d", calls)
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("expected delays %v, got %v", want, *delays)
	}
}

func TestExecute_ContextCancelsBackoff(t *testing.T) {
	s := New(3, time.Second)
	s.sleep = sleepCtx // real sleep, cancelled below

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := s.Execute(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancelled backoff, got %d", calls)
	}
}
