package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/unified-runner/pkg/core"
)

func TestPolicyRetriesTimeouts(t *testing.T) {
	p := Policy{Retries: 1, Delay: time.Millisecond}
	calls := 0
	err := p.Do("find", func(attempt uint) error {
		calls++
		if attempt == 0 {
			return core.ErrWaitTimeout
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestPolicyGivesUpAfterRetries(t *testing.T) {
	p := Policy{Retries: 1, Delay: time.Millisecond}
	calls := 0
	err := p.Do("find", func(uint) error {
		calls++
		return core.ErrWaitTimeout
	})
	assert.True(t, errors.Is(err, core.ErrWaitTimeout))
	assert.Equal(t, 2, calls)
}

func TestPolicyDoesNotRetryOtherErrors(t *testing.T) {
	p := Policy{Retries: 3, Delay: time.Millisecond}
	boom := errors.New("boom")
	calls := 0
	err := p.Do("tap", func(uint) error {
		calls++
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestUntil(t *testing.T) {
	t.Run("met", func(t *testing.T) {
		n := 0
		err := Until(context.Background(), time.Second, time.Millisecond, func() (bool, error) {
			n++
			return n >= 3, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("timeout", func(t *testing.T) {
		err := Until(context.Background(), 20*time.Millisecond, 5*time.Millisecond, func() (bool, error) {
			return false, nil
		})
		assert.True(t, errors.Is(err, core.ErrWaitTimeout))
		assert.True(t, IsTimeout(err))
	})

	t.Run("error stops", func(t *testing.T) {
		boom := errors.New("stale")
		err := Until(context.Background(), time.Second, time.Millisecond, func() (bool, error) {
			return false, boom
		})
		assert.Equal(t, boom, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Until(ctx, time.Second, time.Millisecond, func() (bool, error) { return false, nil })
		assert.True(t, errors.Is(err, context.Canceled))
		assert.False(t, IsTimeout(err))
	})

	t.Run("caller deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := Until(ctx, time.Second, time.Millisecond, func() (bool, error) { return false, nil })
		assert.Equal(t, context.DeadlineExceeded, err)
		assert.False(t, IsTimeout(err))
	})
}

func TestPolicyDoesNotRetryExpiredContext(t *testing.T) {
	p := Policy{Retries: 1, Delay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	err := p.Do("find", func(uint) error {
		calls++
		return Until(ctx, time.Second, time.Millisecond, func() (bool, error) { return false, nil })
	})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Second)
}
