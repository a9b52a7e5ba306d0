package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/agentuity/go-objectcache/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecCacheMiss(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, NewMemoryStore())

	invoked := false
	val, found, err := Exec(ctx, CacheConfig{Key: "key", Expires: OneMinute}, m, func(ctx context.Context) (string, bool, error) {
		invoked = true
		return "fresh-value", true, nil
	})
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "fresh-value", val)
	assert.True(t, invoked)

	cached, found, err := Get[string](ctx, m, "key")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "fresh-value", cached)
}

func TestExecCacheHit(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, NewMemoryStore())
	require.NoError(t, m.Put(ctx, "key", "cached-value", OneMinute))

	invoked := false
	val, found, err := Exec(ctx, CacheConfig{Key: "key"}, m, func(ctx context.Context) (string, bool, error) {
		invoked = true
		return "fresh-value", true, nil
	})
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "cached-value", val)
	assert.False(t, invoked)
}

func TestExecInvokerError(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, NewMemoryStore())

	expectedErr := fmt.Errorf("invoke failed")
	val, found, err := Exec(ctx, CacheConfig{Key: "key", Expires: OneMinute}, m, func(ctx context.Context) (string, bool, error) {
		return "", false, expectedErr
	})
	assert.ErrorIs(t, err, expectedErr)
	assert.False(t, found)
	assert.Equal(t, "", val)
	assert.False(t, m.Exists(ctx, "key"))
}

func TestExecNotFound(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, NewMemoryStore())

	val, found, err := Exec(ctx, CacheConfig{Key: "key", Expires: OneMinute}, m, func(ctx context.Context) (int, bool, error) {
		return 0, false, nil
	})
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, val)
	assert.False(t, m.Exists(ctx, "key"))
}

func TestExecExpiredRecomputes(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager(t, NewMemoryStore())
	require.NoError(t, m.Put(ctx, "key", 1, OneSecond))
	clock.Advance(2 * OneSecond)

	calls := 0
	invoke := func(ctx context.Context) (int, bool, error) {
		calls++
		return 2, true, nil
	}
	val, found, err := Exec(ctx, CacheConfig{Key: "key", Expires: OneHour}, m, invoke)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, val)

	val, _, err = Exec(ctx, CacheConfig{Key: "key", Expires: OneHour}, m, invoke)
	assert.NoError(t, err)
	assert.Equal(t, 2, val)
	assert.Equal(t, 1, calls)
}

func TestExecPutFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	log := logger.NewTestLogger()
	m, _ := newTestManager(t, store, WithLogger(log))
	store.fail("set", fmt.Errorf("disk full"))

	val, found, err := Exec(ctx, CacheConfig{Key: "key", Expires: OneMinute}, m, func(ctx context.Context) (int, bool, error) {
		return 42, true, nil
	})
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 42, val)
	assert.True(t, log.Contains("WARNING", `failed to cache "key"`))
}

func TestExecGetError(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	m, _ := newTestManager(t, store)
	store.fail("get", fmt.Errorf("connection refused"))

	invoked := false
	_, found, err := Exec(ctx, CacheConfig{Key: "key"}, m, func(ctx context.Context) (int, bool, error) {
		invoked = true
		return 1, true, nil
	})
	assert.ErrorIs(t, err, ErrStore)
	assert.False(t, found)
	assert.False(t, invoked)
}
