package orchestrator

import (
	"math"
	"math/rand"
	"time"
)

// BackoffConfig controls retry delay growth for requeued jobs.
type BackoffConfig struct {
	// Initial is the delay before the first retry.
	Initial time.Duration
	// Max caps the delay.
	Max time.Duration
	// Factor is the exponential multiplier per attempt.
	Factor float64
	// Jitter adds randomness to the delay (0.0 to 1.0).
	Jitter float64
}

// DefaultBackoffConfig returns sensible defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial: 500 * time.Millisecond,
		Max:     30 * time.Second,
		Factor:  2.0,
		Jitter:  0.1,
	}
}

// Delay calculates the backoff for a retry attempt (1-based).
func (c BackoffConfig) Delay(attempt int) time.Duration {
	if c.Initial <= 0 {
		c.Initial = 500 * time.Millisecond
	}
	if c.Max <= 0 {
		c.Max = 30 * time.Second
	}
	if c.Factor <= 0 {
		c.Factor = 2.0
	}
	if attempt < 1 {
		attempt = 1
	}

	delay := float64(c.Initial) * math.Pow(c.Factor, float64(attempt-1))

	if c.Jitter > 0 {
		jitterRange := delay * c.Jitter
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if delay > float64(c.Max) {
		delay = float64(c.Max)
	}
	if delay < 0 {
		delay = float64(c.Initial)
	}
	return time.Duration(delay)
}
