package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayExponentialBackoff(t *testing.T) {
	policy := RetryPolicy{
		MaxRetries:         3,
		BaseDelay:          1 * time.Second,
		MaxDelay:           5 * time.Second,
		ExponentialBackoff: true,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 5 * time.Second}, // capped
		{10, 5 * time.Second},
		{50, 5 * time.Second}, // exponent capped, no overflow
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, policy.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestDelayIsNonDecreasing(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay:          50 * time.Millisecond,
		MaxDelay:           2 * time.Second,
		ExponentialBackoff: true,
	}

	prev := time.Duration(0)
	for attempt := 0; attempt < 20; attempt++ {
		d := policy.Delay(attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		prev = d
	}
}

func TestDelayWithoutBackoff(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay: 3 * time.Second,
		MaxDelay:  10 * time.Second,
	}

	for attempt := 0; attempt < 5; attempt++ {
		assert.Equal(t, 3*time.Second, policy.Delay(attempt))
	}
}

func TestDelayNegativeAttempt(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay:          1 * time.Second,
		MaxDelay:           5 * time.Second,
		ExponentialBackoff: true,
	}

	assert.Equal(t, 1*time.Second, policy.Delay(-1))
}
