package cachestore

import (
	"context"
	"strings"
	"time"

	"github.com/truthlens/truthlens/infrastructure/valkey"
)

// ValkeyBackend stores cache entries in a shared Valkey instance so
// results survive process restarts. TTLs map onto native key expiry.
type ValkeyBackend struct {
	client *valkey.Client
}

// NewValkeyBackend wraps an already-connected Valkey client.
func NewValkeyBackend(client *valkey.Client) *ValkeyBackend {
	return &ValkeyBackend{client: client}
}

func (b *ValkeyBackend) fullKey(key string) string {
	return b.client.Key("cache", key)
}

func (b *ValkeyBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	cmd := b.client.Inner().B().Get().Key(b.fullKey(key)).Build()
	data, err := b.client.Inner().Do(ctx, cmd).AsBytes()
	if err != nil {
		if valkey.IsNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (b *ValkeyBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	builder := b.client.Inner().B().Set().Key(b.fullKey(key)).Value(string(value))
	if ttl > 0 {
		return b.client.Inner().Do(ctx, builder.Ex(ttl).Build()).Error()
	}
	return b.client.Inner().Do(ctx, builder.Build()).Error()
}

func (b *ValkeyBackend) Delete(ctx context.Context, key string) error {
	cmd := b.client.Inner().B().Del().Key(b.fullKey(key)).Build()
	return b.client.Inner().Do(ctx, cmd).Error()
}

func (b *ValkeyBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var cursor uint64
	stored := b.fullKey(prefix)
	for {
		scanCmd := b.client.Inner().B().Scan().Cursor(cursor).Match(stored + "*").Count(100).Build()
		result, err := b.client.Inner().Do(ctx, scanCmd).AsScanEntry()
		if err != nil {
			return nil, err
		}
		for _, full := range result.Elements {
			keys = append(keys, strings.TrimPrefix(full, b.fullKey("")))
		}
		cursor = result.Cursor
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func (b *ValkeyBackend) Clear(ctx context.Context, prefix string) error {
	keys, err := b.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := b.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
