package common

import (
	"context"
	"math/rand"
	"time"
)

// BackoffPolicy retries throttled AWS calls with exponential backoff and
// full jitter. Permission, not-found, and other permanent errors are
// returned immediately.
type BackoffPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// BaseDelay seeds the exponential backoff. Attempt n sleeps a uniformly
	// random duration in [0, min(MaxDelay, BaseDelay*2^n)).
	BaseDelay time.Duration

	// MaxDelay caps the backoff window.
	MaxDelay time.Duration
}

// DefaultBackoff matches the documented retry ceiling for scan and cleanup
// calls: three attempts, 500ms base, 8s cap.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// Do runs op, retrying while op fails with a throttling error and attempts
// remain. It returns the last error when retries are exhausted, and stops
// early when ctx is cancelled.
func (p BackoffPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.delay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = op()
		if err == nil || !IsThrottling(err) {
			return err
		}
	}
	return err
}

// delay computes the full-jitter backoff for the given attempt (1-based for
// the first retry).
func (p BackoffPolicy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	max := p.MaxDelay
	if max <= 0 {
		max = 8 * time.Second
	}

	window := base << uint(attempt)
	if window > max || window <= 0 {
		window = max
	}
	return time.Duration(rand.Int63n(int64(window)))
}
