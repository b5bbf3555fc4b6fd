// Package retry provides exponential backoff with jitter for transient fetch
// failures. Retryability is decided by the error classifier: challenge, rate
// limit, and connection failures are retried, everything else returns
// immediately. The backoff delay before retry k is baseDelay*2^k plus a jitter
// drawn from [0, baseDelay/2), so concurrent workers never retry in lockstep.
//
//	cfg := &retry.Config{
//		MaxRetries: 3,
//		Backoff:    retry.NewExponentialBackoff(5 * time.Second),
//		Logger:     logger.GetLogger(),
//	}
//	items, err := retry.DoWithResult(ctx, func() (instagram.ItemIterator, error) {
//		return fetcher.FetchContent(ctx, username, contentType, session)
//	}, cfg)
//
// Cancellation of the surrounding context is observed before each attempt and
// before each wait; it surfaces as an error wrapping ctx.Err(), never as a
// retried failure.
package retry
