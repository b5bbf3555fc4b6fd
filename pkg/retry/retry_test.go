package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "igvideodl/pkg/errors"
	"igvideodl/pkg/logger"
)

func testConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries: maxRetries,
		Backoff:    &ConstantBackoff{Delay: time.Millisecond},
		Logger:     logger.NewNop(),
	}
}

func TestExponentialBackoffDelayWindow(t *testing.T) {
	// maxRetries=3, initialDelay=5s: the delay before retry k must fall in
	// [5s*2^k, 5s*2^k + 2.5s] for k = 0, 1, 2
	backoff := &ExponentialBackoff{
		BaseDelay: 5 * time.Second,
		Jitter:    rand.New(rand.NewSource(42)),
	}

	for k := 0; k < 3; k++ {
		delay := backoff.NextDelay(k)
		lower := 5 * time.Second * (1 << k)
		upper := lower + 2500*time.Millisecond
		assert.GreaterOrEqual(t, delay, lower, "retry %d below window", k)
		assert.LessOrEqual(t, delay, upper, "retry %d above window", k)
	}
}

func TestExponentialBackoffDeterministicWithSeed(t *testing.T) {
	first := &ExponentialBackoff{BaseDelay: time.Second, Jitter: rand.New(rand.NewSource(7))}
	second := &ExponentialBackoff{BaseDelay: time.Second, Jitter: rand.New(rand.NewSource(7))}

	for k := 0; k < 5; k++ {
		assert.Equal(t, first.NextDelay(k), second.NextDelay(k))
	}
}

func TestExponentialBackoffCapsAtMaxDelay(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay: time.Second,
		MaxDelay:  4 * time.Second,
		Jitter:    rand.New(rand.NewSource(1)),
	}

	delay := backoff.NextDelay(10)
	assert.LessOrEqual(t, delay, 4*time.Second+500*time.Millisecond)
}

func TestDoStopsAfterSuccess(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	}, testConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoTotalAttemptsIsMaxRetriesPlusOne(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		return errors.New("rate limit exceeded")
	}, testConfig(3))

	require.Error(t, err)
	assert.Equal(t, 4, attempts)

	classified := errs.Classify(err)
	assert.Equal(t, errs.ErrorTypeRateLimit, classified.Type)
}

func TestDoDoesNotRetryTerminalErrors(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		return errs.New(errs.ErrorTypeProfileNotFound, "no such profile", 404)
	}, testConfig(5))

	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	classified := errs.Classify(err)
	assert.Equal(t, errs.ErrorTypeProfileNotFound, classified.Type)
}

func TestDoPropagatesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	cfg := &Config{
		MaxRetries: 5,
		Backoff:    &ConstantBackoff{Delay: time.Minute},
		Logger:     logger.NewNop(),
	}

	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, func() error {
			attempts++
			return errors.New("connection refused")
		}, cfg)
	}()

	// Let the first attempt fail, then cancel during the backoff wait
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errs.IsCancellation(err))
		assert.Equal(t, 1, attempts)
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestDoDoesNotStartWhenAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts := 0
	err := Do(ctx, func() error {
		attempts++
		return nil
	}, testConfig(3))

	require.Error(t, err)
	assert.True(t, errs.IsCancellation(err))
	assert.Equal(t, 0, attempts)
}

func TestDoReturnsCancellationFromOperation(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func() error {
		attempts++
		return fmt.Errorf("fetch aborted: %w", context.Canceled)
	}, testConfig(3))

	require.Error(t, err)
	assert.True(t, errs.IsCancellation(err))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, attempts, "cancellation is never retried")

	// the error stays a cancellation, not a classified failure
	var classified *errs.Error
	assert.False(t, errors.As(err, &classified))
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	value, err := DoWithResult(context.Background(), func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("timeout waiting for response")
		}
		return "payload", nil
	}, testConfig(3))

	require.NoError(t, err)
	assert.Equal(t, "payload", value)
	assert.Equal(t, 2, attempts)
}

func TestDoInvokesOnRetryHook(t *testing.T) {
	var delays []time.Duration
	var types []errs.ErrorType

	cfg := testConfig(2)
	cfg.OnRetry = func(retry int, classified *errs.Error, delay time.Duration) {
		delays = append(delays, delay)
		types = append(types, classified.Type)
	}

	_ = Do(context.Background(), func() error {
		return errors.New("too many requests")
	}, cfg)

	require.Len(t, delays, 2)
	assert.Equal(t, []errs.ErrorType{errs.ErrorTypeRateLimit, errs.ErrorTypeRateLimit}, types)
}
