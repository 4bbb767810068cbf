package ps

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/sethvargo/go-retry"
)

const (
	retryBase       = 50 * time.Millisecond
	retryMaxRetries = 5
)

// withRetry runs fn, retrying with fibonacci backoff while isTransient
// classifies its error as transient.
func withRetry(ctx context.Context, what string, isTransient func(error) bool, fn func(context.Context) error) error {
	b := retry.WithMaxRetries(retryMaxRetries, retry.NewFibonacci(retryBase))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if isTransient != nil && isTransient(err) {
			glog.V(1).Infof("%s: %v, will retry", what, err)
			return retry.RetryableError(err)
		}
		return err
	})
}
