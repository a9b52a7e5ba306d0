package config

import (
	"context"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/agentuity/go-objectcache/cache"
	"github.com/agentuity/go-objectcache/logger"
)

// Runtime is a Manager together with the resources it was built on.
type Runtime struct {
	Manager  *cache.Manager
	Registry *prometheus.Registry
	closers  []func() error
}

// Close stops the Manager and then closes every store connection opened by
// Build, in reverse order.
func (r *Runtime) Close(ctx context.Context) error {
	err := r.Manager.Close(ctx)
	for _, closeFn := range slices.Backward(r.closers) {
		err = errors.CombineErrors(err, closeFn())
	}
	r.closers = nil
	return err
}

// Build opens the configured stores and returns a Runtime whose Manager
// reads them in the configured order.
func Build(ctx context.Context, c *Config, log logger.Logger) (*Runtime, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	serializer, err := cache.SerializerByName(c.Serializer)
	if err != nil {
		return nil, err
	}

	r := &Runtime{Registry: prometheus.NewRegistry()}
	var stores []cache.Store
	for _, name := range c.Stores() {
		s, closer, err := openStore(ctx, c, name)
		if err != nil {
			for _, closeFn := range slices.Backward(r.closers) {
				closeFn()
			}
			return nil, errors.Wrapf(err, "failed to open %s store", name)
		}
		if closer != nil {
			r.closers = append(r.closers, closer)
		}
		stores = append(stores, s)
		log.Debug("opened %s store", name)
	}

	r.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	store := cache.NewCompositeStore(stores...)
	if c.Breaker.MaxFailures > 0 {
		store = cache.NewBreakerStore(store, cache.BreakerConfig{
			MaxFailures:  c.Breaker.MaxFailures,
			ResetTimeout: c.Breaker.ResetTimeout.Duration(),
		})
	}
	r.Manager = cache.New(store,
		cache.WithSerializer(serializer),
		cache.WithRushWindow(c.RushWindow.Duration()),
		cache.WithShards(c.Shards),
		cache.WithExpiryCheck(c.ExpiryCheck.Duration()),
		cache.WithLogger(log),
		cache.WithMetrics(cache.NewMetrics(r.Registry)),
	)
	return r, nil
}

func openStore(ctx context.Context, c *Config, name string) (cache.Store, func() error, error) {
	opts := []cache.StoreOption{cache.WithQueryTimeout(c.QueryTimeout.Duration())}
	if c.Table != "" {
		opts = append(opts, cache.WithTable(c.Table))
	}
	switch name {
	case "memory":
		return cache.NewMemoryStore(), nil, nil
	case "sqlite":
		s, err := cache.NewSQLiteStore(ctx, c.SQLite.Path, opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "postgres":
		s, err := cache.NewPostgresStore(ctx, c.Postgres.DSN, opts...)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "redis":
		ropts, err := redis.ParseURL(c.Redis.URL)
		if err != nil {
			return nil, nil, err
		}
		client := redis.NewClient(ropts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return cache.NewRedisStore(client, append(opts, cache.WithPrefix(c.Redis.Prefix))...), client.Close, nil
	}
	return nil, nil, errors.Newf("unknown store %q", name)
}
