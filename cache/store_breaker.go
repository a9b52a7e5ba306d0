package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// BreakerState is the state of a BreakerStore circuit.
type BreakerState int32

const (
	StateClosed BreakerState = iota
	StateHalfOpen
	StateOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateHalfOpen:
		return "HALF_OPEN"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// BreakerConfig configures a BreakerStore.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures int
	// ResetTimeout is how long the circuit stays open before a probe is let through.
	ResetTimeout time.Duration
	// SuccessThreshold is the number of successful probes that closes the circuit again.
	SuccessThreshold int
}

// DefaultBreakerConfig returns the configuration used by NewBreakerStore
// for zero fields.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:      5,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 1,
	}
}

// BreakerStore wraps a Store and fails fast with ErrCircuitOpen after
// repeated failures, so an unreachable persistent tier does not add its
// timeout to every call. Cancellation of the caller's context does not count
// as a failure.
type BreakerStore struct {
	store Store
	cfg   BreakerConfig
	clock func() time.Time

	mutex     sync.Mutex
	state     BreakerState
	failures  int
	successes int
	probing   bool
	openedAt  time.Time
}

var _ Store = (*BreakerStore)(nil)

func NewBreakerStore(store Store, cfg BreakerConfig) *BreakerStore {
	def := DefaultBreakerConfig()
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	return &BreakerStore{store: store, cfg: cfg, clock: time.Now}
}

// State returns the current circuit state.
func (b *BreakerStore) State() BreakerState {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.state
}

// Reset closes the circuit.
func (b *BreakerStore) Reset() {
	b.mutex.Lock()
	b.close()
	b.mutex.Unlock()
}

func (b *BreakerStore) close() {
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.probing = false
}

func (b *BreakerStore) open() {
	b.state = StateOpen
	b.openedAt = b.clock()
	b.probing = false
}

// allow reports whether a call may reach the store. In the half-open state
// only one probe is in flight at a time.
func (b *BreakerStore) allow() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	switch b.state {
	case StateOpen:
		if b.clock().Sub(b.openedAt) < b.cfg.ResetTimeout {
			return ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.successes = 0
		fallthrough
	case StateHalfOpen:
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
	}
	return nil
}

func (b *BreakerStore) done(ctx context.Context, err error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.state == StateHalfOpen {
		b.probing = false
	}
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return
	}
	switch {
	case err == nil && b.state == StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.close()
		}
	case err == nil:
		b.failures = 0
	case b.state == StateHalfOpen:
		b.open()
	default:
		b.failures++
		if b.failures >= b.cfg.MaxFailures {
			b.open()
		}
	}
}

func guard[T any](ctx context.Context, b *BreakerStore, fn func() (T, error)) (T, error) {
	if err := b.allow(); err != nil {
		var zero T
		return zero, err
	}
	val, err := fn()
	b.done(ctx, err)
	return val, err
}

func (b *BreakerStore) Contains(ctx context.Context, key string) (bool, error) {
	return guard(ctx, b, func() (bool, error) { return b.store.Contains(ctx, key) })
}

func (b *BreakerStore) Get(ctx context.Context, key string) (string, bool, error) {
	var found bool
	val, err := guard(ctx, b, func() (string, error) {
		val, ok, err := b.store.Get(ctx, key)
		found = ok
		return val, err
	})
	return val, found, err
}

func (b *BreakerStore) Set(ctx context.Context, key string, value string) error {
	_, err := guard(ctx, b, func() (struct{}, error) { return struct{}{}, b.store.Set(ctx, key, value) })
	return err
}

func (b *BreakerStore) Delete(ctx context.Context, key string) (bool, error) {
	return guard(ctx, b, func() (bool, error) { return b.store.Delete(ctx, key) })
}

func (b *BreakerStore) Clear(ctx context.Context) error {
	_, err := guard(ctx, b, func() (struct{}, error) { return struct{}{}, b.store.Clear(ctx) })
	return err
}
