package cachestore

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Backend is a pluggable key/value store with per-entry TTL. The same
// namespace logic works over the in-memory map and the Valkey variant.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Clear(ctx context.Context, prefix string) error
}

// Entry is the stored envelope around cached data.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Policy describes one cache namespace.
type Policy struct {
	Namespace string
	TTL       time.Duration
	MaxSize   int
}

// Stats is a snapshot of one namespace's counters.
type Stats struct {
	Namespace string `json:"namespace"`
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Size      int64  `json:"size_bytes"`
	HumanSize string `json:"human_size"`
}

// Cache is a namespaced view over a Backend. All operations degrade to
// "no cache" on storage errors; they never return an error to callers.
type Cache struct {
	backend Backend
	policy  Policy

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64

	now func() time.Time
}

// New constructs a namespace over the given backend.
func New(backend Backend, policy Policy) *Cache {
	return &Cache{
		backend: backend,
		policy:  policy,
		now:     time.Now,
	}
}

// key derives the namespaced storage key for content. A non-cryptographic
// 32-bit hash is used on purpose; colliding inputs sharing an entry is an
// accepted trade-off.
func (c *Cache) key(content string) string {
	normalized := strings.ToLower(strings.TrimSpace(content))
	h := fnv.New32a()
	h.Write([]byte(c.policy.Namespace + ":" + normalized))
	return fmt.Sprintf("%s:%08x", c.policy.Namespace, h.Sum32())
}

func (c *Cache) prefix() string {
	return c.policy.Namespace + ":"
}

// Get returns the cached payload for content, or (nil, false) on a miss.
// Expired entries are evicted on read.
func (c *Cache) Get(ctx context.Context, content string) (json.RawMessage, bool) {
	key := c.key(content)
	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		logrus.WithError(err).WithField("namespace", c.policy.Namespace).Warn("[CACHE] read failed, treating as miss")
		c.misses.Add(1)
		return nil, false
	}
	if !ok {
		c.misses.Add(1)
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("[CACHE] corrupted entry, evicting")
		_ = c.backend.Delete(ctx, key)
		c.misses.Add(1)
		return nil, false
	}
	if c.now().After(entry.ExpiresAt) {
		_ = c.backend.Delete(ctx, key)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return entry.Data, true
}

// Set stores data under content's key and enforces the namespace size
// bound by evicting the oldest entries (creation order, not access order).
func (c *Cache) Set(ctx context.Context, content string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		logrus.WithError(err).WithField("namespace", c.policy.Namespace).Warn("[CACHE] marshal failed, skipping write")
		return
	}
	now := c.now()
	entry := Entry{
		Data:      payload,
		CreatedAt: now,
		ExpiresAt: now.Add(c.policy.TTL),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		logrus.WithError(err).Warn("[CACHE] envelope marshal failed, skipping write")
		return
	}
	if err := c.backend.Set(ctx, c.key(content), raw, c.policy.TTL); err != nil {
		logrus.WithError(err).WithField("namespace", c.policy.Namespace).Warn("[CACHE] write failed, continuing without cache")
		return
	}
	c.enforceMaxSize(ctx)
}

// Remove deletes the entry for content, if present.
func (c *Cache) Remove(ctx context.Context, content string) {
	if err := c.backend.Delete(ctx, c.key(content)); err != nil {
		logrus.WithError(err).Warn("[CACHE] delete failed")
	}
}

// Clear drops every entry in this namespace.
func (c *Cache) Clear(ctx context.Context) {
	if err := c.backend.Clear(ctx, c.prefix()); err != nil {
		logrus.WithError(err).WithField("namespace", c.policy.Namespace).Warn("[CACHE] clear failed")
	}
}

// Stats reports the namespace counters and approximate size.
func (c *Cache) Stats(ctx context.Context) Stats {
	stats := Stats{
		Namespace: c.policy.Namespace,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
	keys, err := c.backend.Keys(ctx, c.prefix())
	if err != nil {
		logrus.WithError(err).Warn("[CACHE] stats scan failed")
		stats.HumanSize = humanize.Bytes(0)
		return stats
	}
	stats.Entries = len(keys)
	for _, key := range keys {
		if raw, ok, err := c.backend.Get(ctx, key); err == nil && ok {
			stats.Size += int64(len(raw))
		}
	}
	stats.HumanSize = humanize.Bytes(uint64(stats.Size))
	return stats
}

// enforceMaxSize evicts oldest-created entries until the namespace fits
// its bound again.
func (c *Cache) enforceMaxSize(ctx context.Context) {
	if c.policy.MaxSize <= 0 {
		return
	}
	keys, err := c.backend.Keys(ctx, c.prefix())
	if err != nil || len(keys) <= c.policy.MaxSize {
		return
	}

	type aged struct {
		key       string
		createdAt time.Time
	}
	entries := make([]aged, 0, len(keys))
	for _, key := range keys {
		raw, ok, err := c.backend.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			// Unreadable entries count as oldest.
			entries = append(entries, aged{key: key})
			continue
		}
		entries = append(entries, aged{key: key, createdAt: entry.CreatedAt})
	}
	if len(entries) <= c.policy.MaxSize {
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].createdAt.Before(entries[j].createdAt)
	})
	excess := len(entries) - c.policy.MaxSize
	for _, victim := range entries[:excess] {
		if err := c.backend.Delete(ctx, victim.key); err != nil {
			logrus.WithError(err).WithField("key", victim.key).Warn("[CACHE] eviction failed")
			continue
		}
		c.evictions.Add(1)
	}
}

// GetAs decodes the cached payload for content into T.
func GetAs[T any](ctx context.Context, c *Cache, content string) (T, bool) {
	var zero T
	raw, ok := c.Get(ctx, content)
	if !ok {
		return zero, false
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		logrus.WithError(err).Warn("[CACHE] typed decode failed, treating as miss")
		return zero, false
	}
	return value, true
}
