package cache

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultShards is the number of memory tier shards used when WithShards is not given.
const DefaultShards = 16

type memoryShard struct {
	mutex   sync.RWMutex
	entries map[string]Entry
}

// memoryTier is the process-local tier. Keys are spread over mutex-guarded
// shards so unrelated keys do not contend on a single lock.
type memoryTier struct {
	shards []*memoryShard
}

func newMemoryTier(shards int) *memoryTier {
	if shards <= 0 {
		shards = DefaultShards
	}
	t := &memoryTier{shards: make([]*memoryShard, shards)}
	for i := range t.shards {
		t.shards[i] = &memoryShard{entries: make(map[string]Entry)}
	}
	return t
}

func (t *memoryTier) shard(key string) *memoryShard {
	return t.shards[xxhash.Sum64String(key)%uint64(len(t.shards))]
}

func (t *memoryTier) get(key string) (Entry, bool) {
	s := t.shard(key)
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	e, ok := s.entries[key]
	return e, ok
}

func (t *memoryTier) set(key string, e Entry) {
	s := t.shard(key)
	s.mutex.Lock()
	s.entries[key] = e
	s.mutex.Unlock()
}

func (t *memoryTier) delete(key string) bool {
	s := t.shard(key)
	s.mutex.Lock()
	defer s.mutex.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok
}

func (t *memoryTier) clear() {
	for _, s := range t.shards {
		s.mutex.Lock()
		clear(s.entries)
		s.mutex.Unlock()
	}
}

// sweep drops entries expired at now and returns how many were removed.
func (t *memoryTier) sweep(now time.Time) int {
	var removed int
	for _, s := range t.shards {
		s.mutex.Lock()
		for key, e := range s.entries {
			if e.ExpiredAt(now) {
				delete(s.entries, key)
				removed++
			}
		}
		s.mutex.Unlock()
	}
	return removed
}

func (t *memoryTier) len() int {
	var n int
	for _, s := range t.shards {
		s.mutex.RLock()
		n += len(s.entries)
		s.mutex.RUnlock()
	}
	return n
}
