package resilience

import (
	"context"
	"errors"
	"time"
)

// ErrAttemptsExhausted is returned when every retry attempt failed.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Backoff describes an exponential backoff schedule with a delay cap and
// an attempt cap.
type Backoff struct {
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	MaxAttempts int
}

// DefaultBackoff returns the schedule used for snapshot recovery after a
// wake-from-sleep event.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:     500 * time.Millisecond,
		Max:         8 * time.Second,
		Multiplier:  2,
		MaxAttempts: 5,
	}
}

// Delay returns the delay before the given zero-based attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return b.Initial
	}
	d := float64(b.Initial)
	for i := 0; i < attempt; i++ {
		d *= b.Multiplier
		if time.Duration(d) >= b.Max {
			return b.Max
		}
	}
	return time.Duration(d)
}

// Retry runs op until it succeeds, the schedule is exhausted, or the
// context is cancelled. The first attempt runs immediately.
func Retry(ctx context.Context, b Backoff, op func() error) error {
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < b.MaxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(b.Delay(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		if lastErr = op(); lastErr == nil {
			return nil
		}
	}

	return errors.Join(ErrAttemptsExhausted, lastErr)
}
