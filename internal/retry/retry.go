// Package retry repeats an operation with backoff between attempts.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

type Options struct {
	MaxCount    uint
	Interval    time.Duration
	MaxInterval time.Duration
	Exponent    float64
}

func CreateOptions() Options {
	return Options{
		MaxCount:    3,
		Interval:    1 * time.Second,
		MaxInterval: 30 * time.Second,
		Exponent:    1.0,
	}
}

func (o Options) WithMaxCount(count uint) Options {
	o.MaxCount = count
	return o
}

func (o Options) WithInterval(interval time.Duration) Options {
	o.Interval = interval
	return o
}

func (o Options) WithMaxInterval(interval time.Duration) Options {
	o.MaxInterval = interval
	return o
}

func (o Options) WithExponent(exponent float64) Options {
	o.Exponent = exponent
	return o
}

// Handler is one attempt. Wrap an error with Stop to end retrying early.
type Handler[R any] func() (R, error)

// Stop marks err as final: Do returns it unwrapped without further attempts.
func Stop(err error) error {
	return backoff.Permanent(err)
}

// Do runs handler until it succeeds, returns a Stop error, or MaxCount attempts failed. The error of the
// last attempt is returned.
func Do[R any](ctx context.Context, handler Handler[R], options Options) (R, error) {
	operation := func() (R, error) {
		return handler()
	}

	return backoff.Retry(ctx, operation, backoff.WithBackOff(&backoff.ExponentialBackOff{
		InitialInterval: options.Interval,
		Multiplier:      options.Exponent,
		MaxInterval:     options.MaxInterval,
	}), backoff.WithMaxTries(options.MaxCount))
}
