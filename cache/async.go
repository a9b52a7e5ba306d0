package cache

import (
	"context"
	"time"

	"github.com/agentuity/go-objectcache/future"
)

// PutAsync prepares a Put over the given arguments. Nothing runs until the
// returned future is started or awaited.
func (m *Manager) PutAsync(key string, val any, ttl time.Duration) *future.Future[struct{}] {
	return future.New(func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.Put(ctx, key, val, ttl)
	})
}

// UnsetAsync prepares an Unset of key.
func (m *Manager) UnsetAsync(key string) *future.Future[struct{}] {
	return future.New(func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.Unset(ctx, key)
	})
}

// GetAsync prepares a Get of key decoded as T.
func GetAsync[T any](m *Manager, key string) *future.Future[Lookup[T]] {
	return future.New(func(ctx context.Context) (Lookup[T], error) {
		val, found, err := Get[T](ctx, m, key)
		return Lookup[T]{Value: val, Found: found}, err
	})
}
