package provider

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// defaultMaxTries bounds adapter-side retries of transient failures. The
// engine only ever sees a transient error after retries are exhausted.
const defaultMaxTries = 4

// WithRetry runs fn with exponential backoff on throttling and timeout
// errors. Any other failure class is permanent and returned immediately.
func WithRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	op := func() (T, error) {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		switch Classify(err).Kind {
		case ErrorKindThrottled, ErrorKindTimeout:
			return v, err
		default:
			return v, backoff.Permanent(err)
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(defaultMaxTries),
	)
}
