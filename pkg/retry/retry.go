// Package retry holds the bounded waits used by page objects: a polling
// loop with a context deadline, and a retry policy wrapped around it.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/bitrise-io/go-utils/retry"

	"github.com/devicelab-dev/unified-runner/pkg/core"
	"github.com/devicelab-dev/unified-runner/pkg/logger"
)

// DefaultPollInterval is the pause between two polls of a wait condition.
const DefaultPollInterval = 250 * time.Millisecond

// Policy retries an action a fixed number of times with a fixed delay.
// Only errors accepted by Retryable are retried; others return at once.
type Policy struct {
	Retries   uint
	Delay     time.Duration
	Retryable func(error) bool
}

// DefaultPolicy retries a timed-out wait once after 5s.
var DefaultPolicy = Policy{Retries: 1, Delay: 5 * time.Second, Retryable: IsTimeout}

// IsTimeout reports whether err is a wait timeout. An expired caller
// context is not one: retrying under it cannot succeed.
func IsTimeout(err error) bool {
	return errors.Is(err, core.ErrWaitTimeout)
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// policy is exhausted. The last error is returned.
func (p Policy) Do(name string, fn func(attempt uint) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTimeout
	}
	return retry.Times(p.Retries).Wait(p.Delay).TryWithAbort(func(attempt uint) (error, bool) {
		err := fn(attempt)
		if err == nil {
			return nil, false
		}
		if !retryable(err) {
			return err, true
		}
		if attempt < p.Retries {
			logger.Warn("%s: timeout caught (attempt %d/%d), retrying in %s", name, attempt+1, p.Retries, p.Delay)
		} else {
			logger.Error("%s: failed after %d retry: %v", name, p.Retries, err)
		}
		return err, false
	})
}

// Until polls cond every interval until it reports true, returns an
// error, or timeout elapses. Errors from cond stop the wait; use a cond
// that swallows "not yet" errors to keep polling through them. On
// timeout it returns core.ErrWaitTimeout. When ctx itself is done its
// error is returned unchanged.
func Until(ctx context.Context, timeout, interval time.Duration, cond func() (bool, error)) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return core.ErrWaitTimeout.WithMessagef("condition not met within %s", timeout).WithCause(waitCtx.Err())
		case <-ticker.C:
		}
	}
}
