package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
)

// Config controls a retry loop: the first attempt is always made, then up to
// MaxRetries more, sleeping BaseDelay before the first retry and doubling the
// delay each time. No jitter is applied so callers get a predictable schedule.
type Config struct {
	MaxRetries int
	BaseDelay  time.Duration
}

func (c Config) normalized() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	return c
}

// Permanent marks err as non-retryable; Do returns it immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds or the retry budget is exhausted, returning the
// last error verbatim. Context cancellation aborts the wait between attempts.
func Do[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.normalized()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BaseDelay
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(cfg.MaxRetries)), ctx)
	return backoff.RetryWithData(func() (T, error) {
		return op(ctx)
	}, policy)
}
