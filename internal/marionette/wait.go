package marionette

import (
	"context"
	"errors"
	"time"

	"github.com/kumar303/ezboot/internal/poll"
)

// DefaultWaitTimeout is used by the wait helpers when a zero timeout is given.
const DefaultWaitTimeout = 10 * time.Second

func waitOptions(timeout time.Duration) poll.Options {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	return poll.Defaults().WithTimeout(timeout).Ignoring(ErrNoSuchElement, ErrStaleElement)
}

// WaitForPresent waits until loc resolves to an element and returns it.
func WaitForPresent(ctx context.Context, s Searcher, loc Locator, timeout time.Duration) (*Element, error) {
	opts := waitOptions(timeout).WithMessage("element %s not found before timeout", loc)

	return poll.Until(ctx, opts, func(ctx context.Context) (*Element, bool, error) {
		el, err := s.FindElement(ctx, loc)
		if err != nil {
			return nil, false, err
		}
		return el, true, nil
	})
}

// WaitForDisplayed waits until loc resolves to an element that is visible and returns it.
func WaitForDisplayed(ctx context.Context, s Searcher, loc Locator, timeout time.Duration) (*Element, error) {
	opts := waitOptions(timeout).WithMessage("element %s not visible before timeout", loc)

	return poll.Until(ctx, opts, func(ctx context.Context) (*Element, bool, error) {
		el, err := s.FindElement(ctx, loc)
		if err != nil {
			return nil, false, err
		}
		shown, err := el.Displayed(ctx)
		if err != nil {
			return nil, false, err
		}
		return el, shown, nil
	})
}

// WaitForNotDisplayed waits until loc no longer resolves, or resolves to an element that is hidden.
func WaitForNotDisplayed(ctx context.Context, s Searcher, loc Locator, timeout time.Duration) error {
	opts := waitOptions(timeout).WithMessage("element %s still visible after timeout", loc)

	return poll.True(ctx, opts, func(ctx context.Context) (bool, error) {
		el, err := s.FindElement(ctx, loc)
		if errors.Is(err, ErrNoSuchElement) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		shown, err := el.Displayed(ctx)
		if errors.Is(err, ErrNoSuchElement) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		return !shown, nil
	})
}

// WaitForCondition calls fn until it reports true. Missing and stale elements count as false.
func WaitForCondition(ctx context.Context, timeout time.Duration, message string, fn func(ctx context.Context) (bool, error)) error {
	opts := waitOptions(timeout).WithMessage("%s", message)
	return poll.True(ctx, opts, fn)
}
