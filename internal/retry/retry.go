// Package retry runs an operation a bounded number of times with a fixed delay.
package retry

import (
	"context"
	"fmt"
	"time"
)

// DefaultDelay is the pause between attempts when none is configured.
const DefaultDelay = time.Second

// Scheduler configures the pause between attempts.
// The zero value retries immediately.
type Scheduler struct {
	Delay time.Duration
	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error)
}

// New returns a Scheduler with the given fixed delay.
func New(delay time.Duration) *Scheduler {
	return &Scheduler{Delay: delay}
}

// Do calls op until it succeeds or maxAttempts attempts have failed.
// Attempts are numbered from 1. The error of the last attempt is returned unchanged.
// A cancelled context interrupts the pause and returns the context error.
func Do[T any](ctx context.Context, s *Scheduler, maxAttempts int, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if maxAttempts < 1 {
		return zero, fmt.Errorf("retry: maxAttempts must be at least 1, got %d", maxAttempts)
	}
	if s == nil {
		s = &Scheduler{}
	}

	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if attempt >= maxAttempts {
			return zero, err
		}
		if s.OnRetry != nil {
			s.OnRetry(attempt, err)
		}
		if err := s.wait(ctx); err != nil {
			return zero, err
		}
	}
}

func (s *Scheduler) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
