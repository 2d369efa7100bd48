package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(cfg Config) (*Limiter, *time.Time) {
	l := New(cfg)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return current }
	return l, &current
}

func TestLimiterAllowsWithinBudget(t *testing.T) {
	l, _ := newTestLimiter(Config{MaxRequests: 10, Window: time.Minute, Message: "slow down"})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		err := l.Execute(ctx, func(context.Context) error { return nil })
		require.NoError(t, err, "request %d should be admitted", i+1)
	}
}

func TestLimiterDeniesOverBudget(t *testing.T) {
	l, _ := newTestLimiter(Config{MaxRequests: 10, Window: time.Minute, Message: "slow down"})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, l.Execute(ctx, func(context.Context) error { return nil }))
	}

	err := l.Execute(ctx, func(context.Context) error {
		t.Fatal("denied call must not execute")
		return nil
	})
	var rateErr *RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, "RATE_LIMITED", rateErr.ErrCode())
	assert.Equal(t, 429, rateErr.StatusCode())
	// All ten admissions happened at the same instant, so the wait is the
	// full window.
	assert.Equal(t, time.Minute, rateErr.Wait)
}

func TestLimiterSlidingWindow(t *testing.T) {
	l, current := newTestLimiter(Config{MaxRequests: 3, Window: time.Minute})
	ctx := context.Background()

	noop := func(context.Context) error { return nil }

	require.NoError(t, l.Execute(ctx, noop)) // t=0
	*current = current.Add(20 * time.Second)
	require.NoError(t, l.Execute(ctx, noop)) // t=20s
	*current = current.Add(20 * time.Second)
	require.NoError(t, l.Execute(ctx, noop)) // t=40s

	err := l.Execute(ctx, noop)
	var rateErr *RateLimitError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, 20*time.Second, rateErr.Wait, "wait until the oldest timestamp leaves the window")

	// Once the first timestamp slides out, admission resumes.
	*current = current.Add(21 * time.Second)
	assert.NoError(t, l.Execute(ctx, noop))
}

func TestLimiterFailedCallStillCounts(t *testing.T) {
	l, _ := newTestLimiter(Config{MaxRequests: 2, Window: time.Minute})
	ctx := context.Background()

	failing := func(context.Context) error { return errors.New("provider down") }
	require.Error(t, l.Execute(ctx, failing))
	require.Error(t, l.Execute(ctx, failing))

	err := l.Execute(ctx, failing)
	var rateErr *RateLimitError
	assert.True(t, errors.As(err, &rateErr), "failed calls consume budget too")
}

func TestLimiterStatus(t *testing.T) {
	l, current := newTestLimiter(Config{MaxRequests: 5, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, l.Execute(ctx, func(context.Context) error { return nil }))
	*current = current.Add(10 * time.Second)
	require.NoError(t, l.Execute(ctx, func(context.Context) error { return nil }))

	status := l.Status()
	assert.Equal(t, 2, status.Used)
	assert.Equal(t, 5, status.Max)
	assert.Equal(t, 3, status.Remaining)
	assert.Equal(t, 50*time.Second, status.ResetIn)
}

func TestLimiterRecord(t *testing.T) {
	l, _ := newTestLimiter(Config{MaxRequests: 2, Window: 5 * time.Minute})

	l.Record()
	l.Record()

	decision := l.Check()
	assert.False(t, decision.Allowed)
}

func TestLimiterReset(t *testing.T) {
	l, _ := newTestLimiter(Config{MaxRequests: 1, Window: time.Minute})
	ctx := context.Background()

	require.NoError(t, l.Execute(ctx, func(context.Context) error { return nil }))
	require.Error(t, l.Execute(ctx, func(context.Context) error { return nil }))

	l.Reset()
	assert.NoError(t, l.Execute(ctx, func(context.Context) error { return nil }))
}
