package retry

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/truthlens/truthlens/pkg/ratelimit"
)

// Policy controls the backoff schedule and which failures are worth
// retrying.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64
	IsRetryable  func(error) bool
	// OnRetry fires before each retry sleep with the 1-based attempt
	// number that just failed, its error, and the upcoming delay.
	OnRetry func(attempt int, err error, nextDelay time.Duration)

	// Sleeper overrides how delays are awaited. Tests inject this.
	Sleeper func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy mirrors the schedule used for provider calls:
// 1s, 2s, 4s, 8s, 10s capped.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		JitterFactor: 0.1,
		IsRetryable:  IsRetryable,
	}
}

// Do runs fn, retrying per policy. Rate-limit denials are rethrown
// immediately: retrying inside the same window cannot succeed.
func Do(ctx context.Context, policy Policy, fn func(ctx context.Context) error) error {
	retryable := policy.IsRetryable
	if retryable == nil {
		retryable = IsRetryable
	}
	sleep := policy.Sleeper
	if sleep == nil {
		sleep = sleepWithContext
	}

	delay := policy.InitialDelay
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var rateErr *ratelimit.RateLimitError
		if errors.As(err, &rateErr) {
			return err
		}
		if !retryable(err) || attempt > policy.MaxRetries {
			return err
		}

		jittered := jitter(delay, policy.JitterFactor)
		if policy.MaxDelay > 0 && jittered > policy.MaxDelay {
			jittered = policy.MaxDelay
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err, jittered)
		}
		if err := sleep(ctx, jittered); err != nil {
			return err
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
}

// NextDelays returns the delay schedule ignoring jitter, mostly useful
// for logging the policy at startup.
func (p Policy) NextDelays() []time.Duration {
	delays := make([]time.Duration, 0, p.MaxRetries)
	delay := p.InitialDelay
	for i := 0; i < p.MaxRetries; i++ {
		capped := delay
		if p.MaxDelay > 0 && capped > p.MaxDelay {
			capped = p.MaxDelay
		}
		delays = append(delays, capped)
		delay = time.Duration(float64(delay) * p.Multiplier)
	}
	return delays
}

func jitter(delay time.Duration, factor float64) time.Duration {
	if factor <= 0 || delay <= 0 {
		return delay
	}
	// uniform in [-1, 1)
	spread := rand.Float64()*2 - 1
	jittered := float64(delay) + float64(delay)*factor*spread
	if jittered < 0 {
		return 0
	}
	return time.Duration(jittered)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retryabler lets error types opt into retries without this package
// knowing about them.
type Retryabler interface {
	Retryable() bool
}

// IsRetryable is the default predicate: transient network-class failures
// retry, everything else (auth, validation, quota) surfaces immediately.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var retryabler Retryabler
	if errors.As(err, &retryabler) {
		return retryabler.Retryable()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	message := strings.ToLower(err.Error())
	tokens := []string{
		"network",
		"fetch",
		"timeout",
		"deadline exceeded",
		"connection reset",
		"connection refused",
		"no such host",
		"temporary failure",
		"502",
		"503",
		"504",
	}
	for _, token := range tokens {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}
