package cache

import (
	"context"
	"sync"
	"time"
)

type fakeClock struct {
	mutex sync.Mutex
	now   time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mutex.Lock()
	c.now = c.now.Add(d)
	c.mutex.Unlock()
}

// faultyStore is a MemoryStore whose operations can be made to fail.
type faultyStore struct {
	*MemoryStore
	mutex sync.Mutex
	errs  map[string]error
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryStore: NewMemoryStore(), errs: make(map[string]error)}
}

func (s *faultyStore) fail(op string, err error) {
	s.mutex.Lock()
	s.errs[op] = err
	s.mutex.Unlock()
}

func (s *faultyStore) err(op string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.errs[op]
}

func (s *faultyStore) Contains(ctx context.Context, key string) (bool, error) {
	if err := s.err("contains"); err != nil {
		return false, err
	}
	return s.MemoryStore.Contains(ctx, key)
}

func (s *faultyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := s.err("get"); err != nil {
		return "", false, err
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *faultyStore) Set(ctx context.Context, key string, value string) error {
	if err := s.err("set"); err != nil {
		return err
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *faultyStore) Delete(ctx context.Context, key string) (bool, error) {
	if err := s.err("delete"); err != nil {
		return false, err
	}
	return s.MemoryStore.Delete(ctx, key)
}

func (s *faultyStore) Clear(ctx context.Context) error {
	if err := s.err("clear"); err != nil {
		return err
	}
	return s.MemoryStore.Clear(ctx)
}

type unencodable struct{}

func (unencodable) MarshalJSON() ([]byte, error) {
	return nil, context.Canceled
}

func fakeNow() time.Time {
	return newFakeClock().Now()
}
