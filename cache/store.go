package cache

import (
	"context"
	"time"
)

// DefaultQueryTimeout is the per-operation timeout for stores that perform
// I/O (SQLite, Postgres, Redis).
const DefaultQueryTimeout = 5 * time.Second

// storeConfig holds the resolved configuration for a Store implementation.
type storeConfig struct {
	queryTimeout time.Duration
	prefix       string
	table        string
}

// StoreOption configures a Store implementation.
type StoreOption func(*storeConfig)

func applyStoreOptions(opts []StoreOption) storeConfig {
	cfg := storeConfig{
		queryTimeout: DefaultQueryTimeout,
		table:        "objectcache",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithQueryTimeout sets the per-operation timeout for I/O-backed stores.
// Defaults to DefaultQueryTimeout (5 seconds).
func WithQueryTimeout(d time.Duration) StoreOption {
	return func(c *storeConfig) { c.queryTimeout = d }
}

// WithPrefix sets the key prefix for namespacing keys. Applies to the Redis
// store. Defaults to empty (no prefix).
func WithPrefix(p string) StoreOption {
	return func(c *storeConfig) { c.prefix = p }
}

// WithTable sets the table name used by the SQL stores. Defaults to
// "objectcache". The name must be a plain identifier.
func WithTable(name string) StoreOption {
	return func(c *storeConfig) { c.table = name }
}

func (c storeConfig) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.queryTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.queryTimeout)
}
