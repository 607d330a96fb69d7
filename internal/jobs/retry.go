package jobs

import (
	"math"
	"time"
)

// RetryPolicy is an immutable description of how failed jobs are retried.
// MaxAttempts counts total handler invocations; 0 means retry forever.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget (0 = unlimited).
	MaxAttempts int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff delay.
	MaxDelay time.Duration
	// BackoffMultiplier is the exponential growth factor.
	BackoffMultiplier float64
	// ExponentialBackoff selects exponential growth over a constant delay.
	ExponentialBackoff bool
}

// DefaultRetryPolicy returns 3 attempts with exponential backoff from 1s to 5m, 2x multiplier.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:        3,
		InitialDelay:       time.Second,
		MaxDelay:           5 * time.Minute,
		BackoffMultiplier:  2.0,
		ExponentialBackoff: true,
	}
}

// AggressiveRetryPolicy returns 5 attempts with faster backoff for critical jobs.
func AggressiveRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:        5,
		InitialDelay:       500 * time.Millisecond,
		MaxDelay:           30 * time.Second,
		BackoffMultiplier:  1.5,
		ExponentialBackoff: true,
	}
}

// NoRetryPolicy returns a single-attempt policy: jobs fail straight to the dead-letter queue.
func NoRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:        1,
		InitialDelay:       0,
		MaxDelay:           0,
		BackoffMultiplier:  1.0,
		ExponentialBackoff: false,
	}
}

// NewRetryPolicy builds a custom policy from the sync configuration knobs.
func NewRetryPolicy(
	maxAttempts int,
	initialDelay, maxDelay time.Duration,
	multiplier float64,
) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:        maxAttempts,
		InitialDelay:       initialDelay,
		MaxDelay:           maxDelay,
		BackoffMultiplier:  multiplier,
		ExponentialBackoff: true,
	}
}

// DelayForAttempt returns the backoff delay before retry attempt n (1-based).
// Exponential policies return min(MaxDelay, InitialDelay * BackoffMultiplier^(n-1)).
func (p RetryPolicy) DelayForAttempt(attempt int) time.Duration {
	if !p.ExponentialBackoff || attempt <= 0 {
		return p.InitialDelay
	}

	delay := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-1))
	if capped := float64(p.MaxDelay); delay > capped {
		delay = capped
	}
	return time.Duration(delay)
}

// Exhausted reports whether the attempt budget is spent after the given number
// of completed attempts. An unlimited policy (MaxAttempts == 0) never exhausts.
func (p RetryPolicy) Exhausted(attempts int) bool {
	return p.MaxAttempts > 0 && attempts >= p.MaxAttempts
}
