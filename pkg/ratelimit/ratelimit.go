package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// RateLimitError signals an admission denial. It is deliberately a
// distinct type: the retry executor must never retry it, since waiting
// out the window is the only remedy.
type RateLimitError struct {
	Wait    time.Duration
	Message string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (retry in %s)", e.Message, humanize.RelTime(time.Now(), time.Now().Add(e.Wait), "", ""))
}

func (e *RateLimitError) ErrCode() string {
	return "RATE_LIMITED"
}

func (e *RateLimitError) StatusCode() int {
	return 429
}

// Config describes one operation class's budget.
type Config struct {
	MaxRequests int
	Window      time.Duration
	Message     string
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool          `json:"allowed"`
	Wait    time.Duration `json:"wait_ms,omitempty"`
	Message string        `json:"message,omitempty"`
}

// Status is a snapshot of the current window.
type Status struct {
	Used      int           `json:"used"`
	Max       int           `json:"max"`
	Remaining int           `json:"remaining"`
	ResetIn   time.Duration `json:"reset_in_ms"`
}

// Limiter admits calls under a sliding-window budget. Check-and-record
// happens under one lock, so there is no race between admission and
// accounting.
type Limiter struct {
	mu         sync.Mutex
	cfg        Config
	timestamps []time.Time

	now func() time.Time
}

// New constructs a limiter for one operation class.
func New(cfg Config) *Limiter {
	return &Limiter{cfg: cfg, now: time.Now}
}

// prune drops timestamps that have left the trailing window. Caller must
// hold the lock.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.cfg.Window)
	kept := l.timestamps[:0]
	for _, ts := range l.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.timestamps = kept
}

// Check reports whether a call may proceed right now, without recording it.
func (l *Limiter) Check() Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.check(l.now())
}

func (l *Limiter) check(now time.Time) Decision {
	l.prune(now)
	if len(l.timestamps) < l.cfg.MaxRequests {
		return Decision{Allowed: true}
	}
	oldest := l.timestamps[0]
	wait := l.cfg.Window - now.Sub(oldest)
	if wait < 0 {
		wait = 0
	}
	return Decision{Allowed: false, Wait: wait, Message: l.cfg.Message}
}

// Execute admits and records the call, then runs fn. Denials surface as
// *RateLimitError carrying the wait hint.
func (l *Limiter) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	now := l.now()
	decision := l.check(now)
	if !decision.Allowed {
		l.mu.Unlock()
		return &RateLimitError{Wait: decision.Wait, Message: decision.Message}
	}
	l.timestamps = append(l.timestamps, now)
	l.mu.Unlock()

	return fn(ctx)
}

// Record charges one request to the window without an admission check.
// Used for failure accounting, e.g. counting rejected auth attempts.
func (l *Limiter) Record() {
	l.mu.Lock()
	l.timestamps = append(l.timestamps, l.now())
	l.mu.Unlock()
}

// Status reports current window usage.
func (l *Limiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.prune(now)
	status := Status{
		Used:      len(l.timestamps),
		Max:       l.cfg.MaxRequests,
		Remaining: l.cfg.MaxRequests - len(l.timestamps),
	}
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	if len(l.timestamps) > 0 {
		status.ResetIn = l.cfg.Window - now.Sub(l.timestamps[0])
	}
	return status
}

// Reset clears the window. Mostly useful in tests; in production the
// window only resets by time passing.
func (l *Limiter) Reset() {
	l.mu.Lock()
	l.timestamps = nil
	l.mu.Unlock()
}
