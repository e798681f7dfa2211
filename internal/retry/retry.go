// Package retry wraps fallible backend calls with exponential backoff.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy describes how a call is retried.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// MaxJitter is the upper bound of random delay added to each wait.
	MaxJitter time.Duration
	// Retryable reports whether err is worth another attempt. A nil
	// Retryable retries every error.
	Retryable func(error) bool
	// Notify, if set, is called before each wait.
	Notify func(err error, attempt int, wait time.Duration)
}

// Default is three attempts waiting 1s, 2s (plus up to 500ms of jitter)
// between them.
func Default(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxJitter:   500 * time.Millisecond,
		Retryable:   retryable,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, the
// attempts run out or ctx is done. The last error from op is returned.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	wrapped := func() (T, error) {
		v, err := op(ctx)
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(newDoubling(p.BaseDelay, p.MaxJitter), uint64(attempts-1)),
		ctx,
	)

	attempt := 0
	notify := func(err error, wait time.Duration) {
		attempt++
		if p.Notify != nil {
			p.Notify(err, attempt, wait)
		}
	}

	return backoff.RetryNotifyWithData(wrapped, b, notify)
}

// Run is Do for calls without a result.
func Run(ctx context.Context, p Policy, op func(context.Context) error) error {
	_, err := Do(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// doubling waits base * 2^n plus a random jitter in [0, maxJitter].
type doubling struct {
	base      time.Duration
	maxJitter time.Duration
	n         uint
}

func newDoubling(base, maxJitter time.Duration) *doubling {
	return &doubling{base: base, maxJitter: maxJitter}
}

func (d *doubling) NextBackOff() time.Duration {
	wait := d.base << d.n
	d.n++
	if d.maxJitter > 0 {
		wait += time.Duration(rand.Int63n(int64(d.maxJitter) + 1))
	}
	return wait
}

func (d *doubling) Reset() { d.n = 0 }
