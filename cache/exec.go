package cache

import (
	"context"
	"time"
)

// CacheConfig configures the Exec helper.
type CacheConfig struct {
	// Key is the cache key. Required.
	Key string
	// Expires is the TTL for cached values. Zero or less never expires.
	Expires time.Duration
}

// Invoker is a function that produces a value of type T.
// The bool return indicates whether a value was found. Return false to signal
// "not found" without caching a zero value (e.g. sql.ErrNoRows scenarios).
type Invoker[T any] func(ctx context.Context) (T, bool, error)

// Exec is a cache-aside helper. On a hit it returns the cached value. On a
// miss, including the miss reported for an expired entry, it calls invoke and
// caches the result when invoke reports found=true. Get and invoke errors are
// returned; a failed Put is logged and the fresh value is still returned.
func Exec[T any](ctx context.Context, config CacheConfig, m *Manager, invoke Invoker[T]) (T, bool, error) {
	var zero T
	val, found, err := Get[T](ctx, m, config.Key)
	if err != nil {
		return zero, false, err
	}
	if found {
		return val, true, nil
	}

	result, ok, err := invoke(ctx)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		return zero, false, nil
	}

	if err := m.Put(ctx, config.Key, result, config.Expires); err != nil {
		m.log.Warn("failed to cache %q: %s", config.Key, err)
	}
	return result, true, nil
}
