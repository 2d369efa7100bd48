package dedupe

import (
	"context"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Deduplicator coalesces concurrent calls for the same key into one
// in-flight operation. All callers waiting on a key observe the same
// result or the same error; the registry entry is dropped as soon as the
// operation settles.
type Deduplicator struct {
	group    singleflight.Group
	inFlight atomic.Int64
}

// New returns an empty deduplicator.
func New() *Deduplicator {
	return &Deduplicator{}
}

// Key normalizes raw input for deduplication: trimmed but case-preserving.
// Cache lookups additionally lowercase; keeping dedup case-sensitive avoids
// coalescing claims whose meaning depends on casing.
func Key(raw string) string {
	return strings.TrimSpace(raw)
}

// Do runs fn for key unless an identical call is already in flight, in
// which case the caller shares that call's outcome.
func (d *Deduplicator) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	d.inFlight.Add(1)
	defer d.inFlight.Add(-1)

	value, err, _ := d.group.Do(key, func() (any, error) {
		return fn(ctx)
	})
	return value, err
}

// InFlight reports how many callers are currently waiting inside Do.
func (d *Deduplicator) InFlight() int64 {
	return d.inFlight.Load()
}

// Forget drops the registry entry for key so the next call runs fresh.
func (d *Deduplicator) Forget(key string) {
	d.group.Forget(key)
}
