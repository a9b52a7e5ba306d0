package cache

import (
	"context"
	"sync"
	"time"

	"github.com/agentuity/go-objectcache/logger"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

// Manager coordinates the memory tier and a persistent Store. Create one per
// process with New and pass it to the code that needs it.
type Manager struct {
	store     Store
	memory    *memoryTier
	cfg       config
	log       logger.Logger
	refreshes singleflight.Group
	inflight  sync.WaitGroup
	lifecycle sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	sweeper   sync.WaitGroup
	once      sync.Once
}

// New returns a Manager on top of store. The store is not owned by the
// Manager: closing the Manager leaves it untouched.
func New(store Store, opts ...Option) *Manager {
	cfg := applyOptions(opts)
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		store:  store,
		memory: newMemoryTier(cfg.shards),
		cfg:    cfg,
		log:    cfg.logger.WithPrefix("[cache]"),
		ctx:    ctx,
		cancel: cancel,
	}
	if cfg.expiryCheck > 0 {
		m.sweeper.Add(1)
		go m.sweep()
	}
	return m
}

func (m *Manager) now() time.Time {
	return m.cfg.clock()
}

// Exists reports whether the persistent tier holds key. Expiry is not
// evaluated. A store failure is logged and reported as false.
func (m *Manager) Exists(ctx context.Context, key string) bool {
	ctx, span := startSpan(ctx, "cache.Exists", key)
	defer span.End()
	found, err := m.store.Contains(ctx, key)
	if err != nil {
		m.cfg.metrics.failure("exists")
		m.log.Warn("failed to check existence of %q: %s", key, err)
		return false
	}
	span.SetAttributes(attribute.Bool("cache.found", found))
	return found
}

// Put stores val under key in both tiers. A ttl of zero or less never
// expires; partial seconds round up. The memory tier is written before the
// persistent tier and is not rolled back when the persistent write fails.
func (m *Manager) Put(ctx context.Context, key string, val any, ttl time.Duration) error {
	ctx, span := startSpan(ctx, "cache.Put", key)
	err := m.put(ctx, key, val, ttlSeconds(ttl))
	if err != nil {
		m.cfg.metrics.failure("put")
		m.log.Debug("failed to put %q: %s", key, err)
	}
	endSpan(span, err)
	return err
}

func (m *Manager) put(ctx context.Context, key string, val any, ttl int) error {
	payload, err := m.cfg.serializer.Encode(val)
	if err != nil {
		return encodeError(err, key)
	}
	entry := newEntryAt(payload, ttl, m.now())
	m.memory.set(key, entry)
	return m.persist(ctx, key, entry)
}

func (m *Manager) persist(ctx context.Context, key string, entry Entry) error {
	data, err := m.cfg.serializer.Encode(entry.envelope())
	if err != nil {
		return encodeError(err, key)
	}
	if err := m.store.Set(ctx, key, data); err != nil {
		return storeError(err, "write", key)
	}
	m.cfg.metrics.write()
	return nil
}

// Unset overwrites key with a null value that never expires. The key stays
// present: Exists keeps returning true and Get returns the zero value as
// found. Use Delete to remove a key.
func (m *Manager) Unset(ctx context.Context, key string) error {
	return m.Put(ctx, key, nil, NoExpiry)
}

// Delete removes key from both tiers and reports whether either held it.
func (m *Manager) Delete(ctx context.Context, key string) (bool, error) {
	ctx, span := startSpan(ctx, "cache.Delete", key)
	removed := m.memory.delete(key)
	found, err := m.store.Delete(ctx, key)
	if err != nil {
		err = storeError(err, "delete", key)
		m.cfg.metrics.failure("delete")
	}
	endSpan(span, err)
	return removed || found, err
}

// Clear empties the memory tier and then the persistent tier. The memory
// tier stays empty when clearing the store fails.
func (m *Manager) Clear(ctx context.Context) error {
	ctx, span := startSpan(ctx, "cache.Clear", "")
	m.memory.clear()
	var err error
	if serr := m.store.Clear(ctx); serr != nil {
		err = classify(ErrStore, errors.Wrap(serr, "cache: failed to clear store"))
		m.cfg.metrics.failure("clear")
	}
	endSpan(span, err)
	return err
}

// refresh re-inserts an expired value with the rush window as ttl so that
// concurrent readers keep seeing it while one of them recomputes. The memory
// tier is updated before refresh returns. The persistent write happens in the
// background and its outcome only reaches logs, metrics and the refresh hook.
func (m *Manager) refresh(ctx context.Context, key string, val any) {
	m.refreshes.Do(key, func() (any, error) {
		payload, err := m.cfg.serializer.Encode(val)
		if err != nil {
			m.refreshed(key, encodeError(err, key))
			return nil, nil
		}
		entry := newEntryAt(payload, ttlSeconds(m.cfg.rushWindow), m.now())
		m.memory.set(key, entry)
		if !m.track() {
			m.refreshed(key, ErrClosed)
			return nil, nil
		}
		bg := context.WithoutCancel(ctx)
		go func() {
			defer m.inflight.Done()
			m.refreshed(key, m.persist(bg, key, entry))
		}()
		return nil, nil
	})
}

func (m *Manager) refreshed(key string, err error) {
	m.cfg.metrics.refresh(err)
	if err != nil {
		m.log.Debug("background refresh of %q failed: %s", key, err)
	} else {
		m.log.Trace("refreshed %q for %s", key, m.cfg.rushWindow)
	}
	if m.cfg.refreshHook != nil {
		m.cfg.refreshHook(key, err)
	}
}

// track registers a background write unless the Manager is closed.
func (m *Manager) track() bool {
	m.lifecycle.RLock()
	defer m.lifecycle.RUnlock()
	if m.ctx.Err() != nil {
		return false
	}
	m.inflight.Add(1)
	return true
}

// Wait blocks until all background re-insertions have finished.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

// Close stops the expiry sweeper and waits for background re-insertions
// until ctx is done. It does not close the store. Re-insertions after Close
// only update the memory tier.
func (m *Manager) Close(ctx context.Context) error {
	m.once.Do(func() {
		m.lifecycle.Lock()
		m.cancel()
		m.lifecycle.Unlock()
		m.sweeper.Wait()
	})
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) sweep() {
	defer m.sweeper.Done()
	ticker := time.NewTicker(m.cfg.expiryCheck)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if removed := m.memory.sweep(m.now()); removed > 0 {
				m.log.Trace("swept %d expired entries from memory", removed)
			}
		}
	}
}
