package cache

import (
	"context"
)

type compositeStore struct {
	stores []Store
}

var _ Store = (*compositeStore)(nil)

// NewCompositeStore returns a Store that chains multiple stores together.
// Get and Contains check stores in order and return the first hit.
// Set, Delete and Clear apply to all stores.
// At least one store must be provided; panics if empty.
func NewCompositeStore(stores ...Store) Store {
	if len(stores) == 0 {
		panic("cache: NewCompositeStore requires at least one store")
	}
	if len(stores) == 1 {
		return stores[0]
	}
	return &compositeStore{stores: stores}
}

func (c *compositeStore) Contains(ctx context.Context, key string) (bool, error) {
	for _, store := range c.stores {
		found, err := store.Contains(ctx, key)
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

func (c *compositeStore) Get(ctx context.Context, key string) (string, bool, error) {
	for _, store := range c.stores {
		val, found, err := store.Get(ctx, key)
		if err != nil {
			return "", false, err
		}
		if found {
			return val, true, nil
		}
	}
	return "", false, nil
}

func (c *compositeStore) Set(ctx context.Context, key string, value string) error {
	var firstErr error
	for _, store := range c.stores {
		if err := store.Set(ctx, key, value); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *compositeStore) Delete(ctx context.Context, key string) (bool, error) {
	anyFound := false
	for _, store := range c.stores {
		found, err := store.Delete(ctx, key)
		if err != nil {
			return anyFound, err
		}
		if found {
			anyFound = true
		}
	}
	return anyFound, nil
}

func (c *compositeStore) Clear(ctx context.Context) error {
	var firstErr error
	for _, store := range c.stores {
		if err := store.Clear(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
