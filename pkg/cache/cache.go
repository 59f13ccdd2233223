// Package cache is a small JSON key/value cache with Redis and in-process
// drivers behind one interface.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shashiranjanraj/zepto/config"
	"github.com/shashiranjanraj/zepto/pkg/logger"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is implemented by every driver. Values are JSON encoded.
type Store interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// SetNX stores value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	Driver() string
}

// Connect builds the configured driver. When Redis is selected but
// unreachable it logs and falls back to memory so the API stays up.
func Connect(ctx context.Context) Store {
	if config.CacheDriver() != "redis" {
		return NewMemory()
	}
	rs, err := NewRedis(ctx, config.RedisAddr(), config.RedisPassword())
	if err != nil {
		logger.Warn("cache: redis unavailable, using memory", "error", err)
		return NewMemory()
	}
	return rs
}

// Remember returns the cached value for key, or calls load, caches its
// result for ttl and returns it.
func Remember[T any](ctx context.Context, s Store, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var out T
	if err := s.Get(ctx, key, &out); err == nil {
		return out, nil
	} else if !errors.Is(err, ErrMiss) {
		logger.WithCtx(ctx).Warn("cache: get failed", "key", key, "error", err)
	}

	out, err := load()
	if err != nil {
		return out, err
	}
	if err := s.Set(ctx, key, out, ttl); err != nil {
		logger.WithCtx(ctx).Warn("cache: set failed", "key", key, "error", err)
	}
	return out, nil
}

func encode(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("cache: encode: %w", err)
	}
	return data, nil
}

func decode(data []byte, dest any) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("cache: decode: %w", err)
	}
	return nil
}
