package client

import "time"

const (
	// DefaultBaseDelay is the default delay before the first reattempt
	DefaultBaseDelay = 1 * time.Second

	// DefaultMaxDelay caps the backoff delay between reattempts
	DefaultMaxDelay = 30 * time.Second

	// maxBackoffShift caps the exponent so the multiplier cannot overflow
	maxBackoffShift = 10
)

// RetryPolicy controls how many times a logical invocation is reattempted
// and how long to sleep between attempts.
//
// MaxRetries is the number of reattempts after the first attempt, so
// MaxRetries=0 means exactly one attempt and no sleeping.
type RetryPolicy struct {
	MaxRetries         int
	BaseDelay          time.Duration
	MaxDelay           time.Duration
	ExponentialBackoff bool
}

// DefaultRetryPolicy performs a single attempt, matching the conservative
// default of the builder.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:         0,
	BaseDelay:          DefaultBaseDelay,
	MaxDelay:           DefaultMaxDelay,
	ExponentialBackoff: true,
}

// Delay returns the sleep duration after the given 0-based attempt:
//
//	backoff on:  min(BaseDelay * 2^min(attempt, 10), MaxDelay)
//	backoff off: BaseDelay
//
// The result is deterministic and non-decreasing in attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if !p.ExponentialBackoff {
		return p.BaseDelay
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt > maxBackoffShift {
		attempt = maxBackoffShift
	}
	d := p.BaseDelay << attempt
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}
