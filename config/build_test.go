package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentuity/go-objectcache/cache"
	"github.com/agentuity/go-objectcache/logger"
)

func TestBuildMemory(t *testing.T) {
	ctx := context.Background()
	cfg := Default()
	cfg.Store = "memory"

	r, err := Build(ctx, cfg, logger.NewTestLogger())
	require.NoError(t, err)
	defer r.Close(ctx)

	require.NoError(t, r.Manager.Put(ctx, "a", 1, cache.OneHour))
	val, found, err := cache.Get[int](ctx, r.Manager, "a")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, val)

	count, err := testutil.GatherAndCount(r.Registry, "objectcache_writes_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestBuildRedisAndSQLite(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := Default()
	cfg.Store = "redis,sqlite"
	cfg.Serializer = "msgpack"
	cfg.Redis.URL = "redis://" + mr.Addr()
	cfg.Redis.Prefix = "built"
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "cache.db")

	r, err := Build(ctx, cfg, logger.NewTestLogger())
	require.NoError(t, err)
	require.NoError(t, r.Manager.Put(ctx, "a", "value", cache.OneHour))
	assert.True(t, mr.Exists("built:a"))
	require.NoError(t, r.Close(ctx))

	// the sqlite file still has the entry after the redis copy is gone
	mr.FlushAll()
	cfg.Store = "sqlite"
	r, err = Build(ctx, cfg, logger.NewTestLogger())
	require.NoError(t, err)
	defer r.Close(ctx)
	val, found, err := cache.Get[string](ctx, r.Manager, "a")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", val)
}

func TestBuildUnreachableRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := Default()
	cfg.Store = "memory,redis"
	cfg.Redis.URL = "redis://" + addr
	_, err := Build(context.Background(), cfg, logger.NewTestLogger())
	assert.ErrorContains(t, err, "failed to open redis store")
}

func TestBuildInvalidConfig(t *testing.T) {
	cfg := Default()
	cfg.Store = ""
	_, err := Build(context.Background(), cfg, logger.NewTestLogger())
	assert.ErrorContains(t, err, "at least one store is required")
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "error"
	log := NewLogger(cfg)
	assert.True(t, log.IsLevelEnabled(logger.LevelError))
	assert.False(t, log.IsLevelEnabled(logger.LevelWarn))

	cfg.LogFormat = "json"
	cfg.LogLevel = ""
	log = NewLogger(cfg)
	assert.True(t, log.IsLevelEnabled(logger.LevelInfo))
	assert.False(t, log.IsLevelEnabled(logger.LevelDebug))
}
