// Package poll provides a retry-until-true-or-timeout primitive for waiting on device state.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrTimeout is matched by every *TimeoutError.
var ErrTimeout = errors.New("timed out")

// TimeoutError is returned when a condition did not become true in time.
type TimeoutError struct {
	Message string
	Elapsed time.Duration
	// Last is the last transient error seen while polling, if any.
	Last error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s (waited %s)", e.Message, e.Elapsed.Round(time.Millisecond))
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Options describes a single polling invocation.
type Options struct {
	Timeout  time.Duration
	Interval time.Duration
	Message  string
	// Ignored lists errors that mean "not yet" rather than failure.
	Ignored []error
}

// Defaults returns the options used when nothing else is specified.
func Defaults() Options {
	return Options{
		Timeout:  10 * time.Second,
		Interval: 500 * time.Millisecond,
		Message:  "condition timed out",
	}
}

func (o Options) WithTimeout(timeout time.Duration) Options {
	o.Timeout = timeout
	return o
}

func (o Options) WithInterval(interval time.Duration) Options {
	o.Interval = interval
	return o
}

func (o Options) WithMessage(format string, args ...interface{}) Options {
	o.Message = fmt.Sprintf(format, args...)
	return o
}

// Ignoring returns a copy of o that treats errs as transient.
func (o Options) Ignoring(errs ...error) Options {
	ignored := make([]error, 0, len(o.Ignored)+len(errs))
	ignored = append(ignored, o.Ignored...)
	o.Ignored = append(ignored, errs...)
	return o
}

func (o Options) ignores(err error) bool {
	for _, e := range o.Ignored {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

// Func is a condition evaluated on every tick. Returning ok=false keeps polling.
type Func[T any] func(ctx context.Context) (value T, ok bool, err error)

// errNotYet is what a tick that reported ok=false without an error looks like to the backoff loop.
var errNotYet = errors.New("condition not met")

// deadlineBackOff waits a constant interval between ticks, shortening the last one so that the final
// tick runs at the deadline.
type deadlineBackOff struct {
	backoff.ConstantBackOff
	deadline time.Time
}

func (b *deadlineBackOff) NextBackOff() time.Duration {
	remaining := time.Until(b.deadline)
	if remaining <= 0 {
		return backoff.Stop
	}
	return min(b.ConstantBackOff.NextBackOff(), remaining)
}

// Until evaluates fn immediately and then once per interval until it reports ok, in which case its value
// is returned. If the timeout elapses first, a *TimeoutError is returned. Errors that are not listed in
// opts.Ignored are returned as is, without further polling.
func Until[T any](ctx context.Context, opts Options, fn Func[T]) (T, error) {
	var zero T

	if opts.Interval <= 0 {
		opts.Interval = Defaults().Interval
	}
	if opts.Message == "" {
		opts.Message = Defaults().Message
	}

	start := time.Now()
	b := &deadlineBackOff{
		ConstantBackOff: backoff.ConstantBackOff{Interval: opts.Interval},
		deadline:        start.Add(opts.Timeout),
	}

	operation := func() (T, error) {
		value, ok, err := fn(ctx)
		switch {
		case err != nil && !opts.ignores(err):
			return zero, backoff.Permanent(err)
		case err != nil:
			return zero, err
		case !ok:
			return zero, errNotYet
		}
		return value, nil
	}

	// backoff gives up once elapsed time plus the next wait exceeds the limit, which would skip the
	// tick at the deadline. The deadline itself is enforced by deadlineBackOff.
	value, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(opts.Timeout+opts.Interval),
	)
	if err == nil {
		return value, nil
	}
	if ctx.Err() != nil {
		return zero, context.Cause(ctx)
	}
	if errors.Is(err, errNotYet) {
		return zero, &TimeoutError{Message: opts.Message, Elapsed: time.Since(start)}
	}
	if opts.ignores(err) {
		return zero, &TimeoutError{Message: opts.Message, Elapsed: time.Since(start), Last: err}
	}
	return zero, err
}

// True polls a boolean condition. It is a convenience wrapper around Until.
func True(ctx context.Context, opts Options, fn func(ctx context.Context) (bool, error)) error {
	_, err := Until(ctx, opts, func(ctx context.Context) (struct{}, bool, error) {
		ok, err := fn(ctx)
		return struct{}{}, ok, err
	})
	return err
}
