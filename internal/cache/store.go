package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang/snappy"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/geoatlas/internal/clock"
)

const DefaultKeyPrefix = "geoatlas:cache:"

// Store is a context-aware cache of whole query responses.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
}

// Memory adapts a TTLCache to Store.
type Memory[V any] struct {
	entries *TTLCache[string, V]
}

func NewMemory[V any](c clock.Clock, maxEntries int) *Memory[V] {
	return &Memory[V]{entries: NewTTLCache[string, V](c, maxEntries)}
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, bool, error) {
	value, ok := m.entries.Get(key)
	return value, ok, nil
}

func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	m.entries.Set(key, value, ttl)
	return nil
}

// Redis stores values as snappy-compressed JSON so several API replicas
// share one cache.
type Redis[V any] struct {
	client *redis.Client
	prefix string
}

func NewRedis[V any](client *redis.Client, prefix string) *Redis[V] {
	if client == nil {
		return nil
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis[V]{client: client, prefix: prefix}
}

func (r *Redis[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	value, err := Decode[V](raw)
	if err != nil {
		return zero, false, err
	}
	return value, true, nil
}

func (r *Redis[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	payload, err := Encode(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, payload, ttl).Err()
}

// Encode returns the wire form used by the redis store.
func Encode[V any](value V) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode cache value: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}

func Decode[V any](payload []byte) (V, error) {
	var value V
	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return value, fmt.Errorf("decompress cache value: %w", err)
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, fmt.Errorf("decode cache value: %w", err)
	}
	return value, nil
}
