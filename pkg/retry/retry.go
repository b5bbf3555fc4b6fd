package retry

import (
	"context"
	"fmt"
	"time"

	errs "igvideodl/pkg/errors"
	"igvideodl/pkg/logger"
)

// Operation is a unit of work that might need retrying
type Operation func() error

// Config holds retry configuration
type Config struct {
	// MaxRetries is the number of retries after the initial attempt,
	// so total attempts = MaxRetries + 1
	MaxRetries int
	// Backoff strategy to use between attempts
	Backoff BackoffStrategy
	// OnRetry is called before each backoff wait
	OnRetry func(retry int, classified *errs.Error, delay time.Duration)
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxRetries: 3,
		Backoff:    NewExponentialBackoff(5 * time.Second),
		Logger:     logger.GetLogger(),
	}
}

// Do executes an operation, retrying classified-retryable failures with
// backoff. The returned error is always classifiable: either the last
// classified failure (possibly wrapped with exhaustion context) or a
// cancellation error wrapping ctx.Err(). Cancellation is observed before
// every backoff wait and is never retried past.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	for retry := 0; ; retry++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		err := op()
		if err == nil {
			if retry > 0 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": retry + 1,
				})
			}
			return nil
		}

		// a cancellation surfacing from the operation itself stays a
		// cancellation, never a classified failure
		if errs.IsCancellation(err) {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		classified := errs.Classify(err)

		if !errs.IsRetryable(classified.Type) {
			if cfg.Logger != nil {
				cfg.Logger.DebugWithFields("error is not retryable", map[string]interface{}{
					"error_type": string(classified.Type),
					"error":      classified.Message,
				})
			}
			return classified
		}

		if retry >= cfg.MaxRetries {
			if cfg.Logger != nil {
				cfg.Logger.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
					"attempts":   retry + 1,
					"error_type": string(classified.Type),
					"last_error": classified.Message,
				})
			}
			return fmt.Errorf("max retries (%d) exceeded: %w", cfg.MaxRetries, classified)
		}

		delay := cfg.Backoff.NextDelay(retry)

		if cfg.OnRetry != nil {
			cfg.OnRetry(retry, classified, delay)
		}

		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":     retry + 1,
				"error_type":  string(classified.Type),
				"error":       classified.Message,
				"delay_ms":    delay.Milliseconds(),
				"max_retries": cfg.MaxRetries,
			})
		}

		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, op func() (T, error), cfg *Config) (T, error) {
	var result T

	err := Do(ctx, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)

	return result, err
}
