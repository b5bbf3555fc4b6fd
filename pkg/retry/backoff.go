package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the wait before retry number `retry` (0-based)
type BackoffStrategy interface {
	NextDelay(retry int) time.Duration
}

// ExponentialBackoff implements exponential backoff with additive jitter.
// The delay before retry k is BaseDelay * Multiplier^k, capped at MaxDelay,
// plus a jitter drawn uniformly from [0, BaseDelay/2). The jitter is additive
// so parallel workers retrying the same backend never synchronize.
type ExponentialBackoff struct {
	// BaseDelay is the delay before the first retry
	BaseDelay time.Duration
	// MaxDelay caps the exponential part; 0 means no cap
	MaxDelay time.Duration
	// Multiplier is the factor by which delay increases; 0 means 2.0
	Multiplier float64
	// Jitter is the randomness source; nil uses the shared global source.
	// Tests pass a seeded source for reproducible delays.
	Jitter *rand.Rand
}

// NewExponentialBackoff returns an exponential backoff with the given base
// delay and the default multiplier and cap
func NewExponentialBackoff(baseDelay time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay: baseDelay,
		MaxDelay:  5 * time.Minute,
	}
}

// NextDelay calculates the delay before the given retry
func (eb *ExponentialBackoff) NextDelay(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}

	multiplier := eb.Multiplier
	if multiplier == 0 {
		multiplier = 2.0
	}

	delay := float64(eb.BaseDelay) * math.Pow(multiplier, float64(retry))
	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	delay += eb.jitterFraction() * float64(eb.BaseDelay) / 2

	return time.Duration(delay)
}

func (eb *ExponentialBackoff) jitterFraction() float64 {
	if eb.Jitter != nil {
		return eb.Jitter.Float64()
	}
	return rand.Float64()
}

// ConstantBackoff waits the same duration before every retry
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns the constant delay
func (cb *ConstantBackoff) NextDelay(retry int) time.Duration {
	return cb.Delay
}

// Wait waits for the specified duration or until the context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
