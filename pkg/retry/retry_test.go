package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthlens/truthlens/pkg/ratelimit"
)

func noJitterPolicy() Policy {
	p := DefaultPolicy()
	p.JitterFactor = 0
	return p
}

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	p := noJitterPolicy()
	p.Sleeper = func(context.Context, time.Duration) error { return nil }

	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientFailures(t *testing.T) {
	var delays []time.Duration
	p := noJitterPolicy()
	p.Sleeper = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	calls := 0
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("network error: connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}

func TestDoBackoffScheduleDoubles(t *testing.T) {
	var delays []time.Duration
	p := noJitterPolicy()
	p.MaxRetries = 5
	p.Sleeper = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	err := Do(context.Background(), p, func(context.Context) error {
		return errors.New("timeout")
	})
	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second, // capped at MaxDelay
	}, delays)
}

func TestDoNeverRetriesRateLimit(t *testing.T) {
	calls := 0
	p := noJitterPolicy()
	p.Sleeper = func(context.Context, time.Duration) error {
		t.Fatal("must not sleep for a rate limit error")
		return nil
	}

	rateErr := &ratelimit.RateLimitError{Wait: 30 * time.Second, Message: "slow down"}
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return rateErr
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var got *ratelimit.RateLimitError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 30*time.Second, got.Wait)
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	p := noJitterPolicy()
	p.Sleeper = func(context.Context, time.Duration) error { return nil }

	permanent := errors.New("invalid api key")
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoStopsAfterMaxRetries(t *testing.T) {
	calls := 0
	p := noJitterPolicy()
	p.Sleeper = func(context.Context, time.Duration) error { return nil }

	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return errors.New("503 service unavailable")
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls, "initial attempt plus MaxRetries retries")
}

func TestDoHonorsContextDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := noJitterPolicy()
	p.Sleeper = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	err := Do(ctx, p, func(context.Context) error {
		return errors.New("timeout")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoOnRetryCallback(t *testing.T) {
	type event struct {
		attempt int
		delay   time.Duration
	}
	var events []event

	p := noJitterPolicy()
	p.Sleeper = func(context.Context, time.Duration) error { return nil }
	p.OnRetry = func(attempt int, _ error, nextDelay time.Duration) {
		events = append(events, event{attempt: attempt, delay: nextDelay})
	}

	_ = Do(context.Background(), p, func(context.Context) error {
		return errors.New("connection refused")
	})
	require.Len(t, events, 3)
	assert.Equal(t, event{attempt: 1, delay: time.Second}, events[0])
	assert.Equal(t, event{attempt: 3, delay: 4 * time.Second}, events[2])
}

func TestJitterStaysWithinFactor(t *testing.T) {
	for i := 0; i < 200; i++ {
		d := jitter(time.Second, 0.1)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}

type retryableErr struct{ retryable bool }

func (e *retryableErr) Error() string   { return "wrapped failure" }
func (e *retryableErr) Retryable() bool { return e.retryable }

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(context.Canceled))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.True(t, IsRetryable(errors.New("fetch failed")))
	assert.True(t, IsRetryable(errors.New("upstream returned 502")))
	assert.False(t, IsRetryable(errors.New("invalid api key")))
	assert.True(t, IsRetryable(&retryableErr{retryable: true}))
	assert.False(t, IsRetryable(&retryableErr{retryable: false}))
}

func TestNextDelays(t *testing.T) {
	p := noJitterPolicy()
	p.MaxRetries = 5
	assert.Equal(t, []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
	}, p.NextDelays())
}
