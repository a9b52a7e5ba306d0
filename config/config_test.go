package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/agentuity/go-objectcache/cache"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(fn, []byte(body), 0644))
	return fn
}

func TestDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"sqlite"}, cfg.Stores())
	assert.Equal(t, cache.DefaultRushWindow, cfg.RushWindow.Duration())
	assert.Equal(t, cache.DefaultQueryTimeout, cfg.QueryTimeout.Duration())
	assert.Equal(t, cache.DefaultShards, cfg.Shards)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Breaker.MaxFailures)
	assert.Equal(t, "objectcache", cfg.Telemetry.ServiceName)
	assert.Empty(t, cfg.Telemetry.Endpoint)
}

func TestLoadYAML(t *testing.T) {
	fn := writeFile(t, "objectcache.yaml", `
store: redis, sqlite
serializer: msgpack
rush_window: 30s
expiry_check: 1d
shards: 4
log_level: debug
log_format: json
sqlite:
  path: /tmp/cache.db
redis:
  url: redis://cache:6379/2
  prefix: app
server:
  addr: 127.0.0.1:9000
`)
	cfg, err := Load(fn)
	require.NoError(t, err)
	assert.Equal(t, []string{"redis", "sqlite"}, cfg.Stores())
	assert.Equal(t, "msgpack", cfg.Serializer)
	assert.Equal(t, 30*time.Second, cfg.RushWindow.Duration())
	assert.Equal(t, 24*time.Hour, cfg.ExpiryCheck.Duration())
	assert.Equal(t, cache.DefaultQueryTimeout, cfg.QueryTimeout.Duration())
	assert.Equal(t, 4, cfg.Shards)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "/tmp/cache.db", cfg.SQLite.Path)
	assert.Equal(t, "redis://cache:6379/2", cfg.Redis.URL)
	assert.Equal(t, "app", cfg.Redis.Prefix)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to open config file")

	_, err = Load(writeFile(t, "a.yaml", "unknown_field: 1\n"))
	assert.ErrorContains(t, err, "failed to decode YAML config file")

	_, err = Load(writeFile(t, "b.yaml", "rush_window: soon\n"))
	assert.ErrorContains(t, err, `invalid duration "soon"`)

	_, err = Load(writeFile(t, "c.yaml", "store: mongo\n"))
	assert.ErrorContains(t, err, `unknown store "mongo"`)

	_, err = Load(writeFile(t, "d.yaml", "store: postgres\n"))
	assert.ErrorContains(t, err, "postgres.dsn is required")

	_, err = Load(writeFile(t, "e.yaml", "serializer: xml\n"))
	assert.ErrorContains(t, err, "unknown serializer")

	_, err = Load(writeFile(t, "f.yaml", "log_format: xml\n"))
	assert.ErrorContains(t, err, "unknown log format")

	_, err = Load(writeFile(t, "g.yaml", "rush_window: 0s\n"))
	assert.ErrorContains(t, err, "rush_window must be positive")
}

func TestLoadEnvOverrides(t *testing.T) {
	fn := writeFile(t, "objectcache.yaml", "store: sqlite\nrush_window: 30s\n")
	t.Setenv("OBJECTCACHE_STORE", "memory")
	t.Setenv("OBJECTCACHE_RUSH_WINDOW", "1w")
	t.Setenv("OBJECTCACHE_SHARDS", "8")
	t.Setenv("OBJECTCACHE_LOG_LEVEL", "warn")
	t.Setenv("OBJECTCACHE_REDIS_PREFIX", "env")
	t.Setenv("OBJECTCACHE_BREAKER_MAX_FAILURES", "0")
	t.Setenv("OBJECTCACHE_OTLP_URL", "http://collector:4318")

	cfg, err := Load(fn)
	require.NoError(t, err)
	assert.Equal(t, []string{"memory"}, cfg.Stores())
	assert.Equal(t, 7*24*time.Hour, cfg.RushWindow.Duration())
	assert.Equal(t, 8, cfg.Shards)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "env", cfg.Redis.Prefix)
	assert.Equal(t, 0, cfg.Breaker.MaxFailures)
	assert.Equal(t, "http://collector:4318", cfg.Telemetry.Endpoint)

	t.Setenv("OBJECTCACHE_SHARDS", "many")
	_, err = Load(fn)
	assert.ErrorContains(t, err, "OBJECTCACHE_SHARDS")
}

func TestLoadDotEnv(t *testing.T) {
	fn := writeFile(t, ".env", "OBJECTCACHE_TEST_DOTENV=from-file\n")
	t.Setenv("OBJECTCACHE_TEST_DOTENV", "")
	os.Unsetenv("OBJECTCACHE_TEST_DOTENV")

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), fn))
	assert.Equal(t, "from-file", os.Getenv("OBJECTCACHE_TEST_DOTENV"))
}

func TestDurationYAML(t *testing.T) {
	var v struct {
		D Duration `yaml:"d"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("d: 1h30m\n"), &v))
	assert.Equal(t, 90*time.Minute, v.D.Duration())

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, "d: 1h30m\n", string(out))
}
