package cache

import (
	"context"
	"time"

	"github.com/agentuity/go-objectcache/logger"
)

// Store is the persistent tier. Implementations must be safe for concurrent
// use. Get reports a missing key with found=false and a nil error.
type Store interface {
	// Contains reports whether key is present, regardless of what it holds.
	Contains(ctx context.Context, key string) (bool, error)
	// Get returns the stored value for key.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value string) error
	// Delete removes key and reports whether it was present.
	Delete(ctx context.Context, key string) (bool, error)
	// Clear removes every key owned by the store.
	Clear(ctx context.Context) error
}

// Common time to live presets.
const (
	NoExpiry  time.Duration = -1
	OneSecond               = time.Second
	OneMinute               = time.Minute
	OneHour                 = time.Hour
	OneDay                  = 24 * time.Hour
	OneWeek                 = 7 * OneDay
	OneMonth                = 30 * OneDay
	OneYear                 = 365 * OneDay
)

// DefaultRushWindow is how long an expired entry is kept alive after its
// expiry was first reported to a caller.
const DefaultRushWindow = 2 * time.Minute

// RefreshHook observes the outcome of the background write performed when an
// expired entry is re-inserted. err is nil on success.
type RefreshHook func(key string, err error)

// config holds the resolved configuration of a Manager.
type config struct {
	serializer  Serializer
	rushWindow  time.Duration
	logger      logger.Logger
	metrics     *Metrics
	refreshHook RefreshHook
	clock       func() time.Time
	shards      int
	expiryCheck time.Duration
}

// Option configures a Manager.
type Option func(*config)

func defaultConfig() config {
	return config{
		serializer: NewJSONSerializer(),
		rushWindow: DefaultRushWindow,
		logger:     logger.Discard(),
		clock:      time.Now,
		shards:     DefaultShards,
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithSerializer sets the serializer used for values and persisted entries.
// Defaults to JSON.
func WithSerializer(s Serializer) Option {
	return func(c *config) { c.serializer = s }
}

// WithRushWindow sets the ttl given to an expired entry when it is
// re-inserted. Defaults to DefaultRushWindow (2 minutes); a window of zero
// or less keeps the default.
func WithRushWindow(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.rushWindow = d
		}
	}
}

// WithLogger sets the logger. Defaults to a logger that discards everything.
func WithLogger(l logger.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMetrics records cache activity in m.
func WithMetrics(m *Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithRefreshHook registers a hook called after every background re-insertion.
func WithRefreshHook(h RefreshHook) Option {
	return func(c *config) { c.refreshHook = h }
}

// WithClock replaces the wall clock used to stamp and check entries.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.clock = now }
}

// WithShards sets the number of memory tier shards. Defaults to DefaultShards.
func WithShards(n int) Option {
	return func(c *config) { c.shards = n }
}

// WithExpiryCheck enables a background sweep of expired memory tier entries
// at the given interval. Disabled by default.
func WithExpiryCheck(d time.Duration) Option {
	return func(c *config) { c.expiryCheck = d }
}

// Lookup is the outcome of an asynchronous Get.
type Lookup[T any] struct {
	Value T
	Found bool
}
