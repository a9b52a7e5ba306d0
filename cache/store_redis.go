package cache

import (
	"context"
	"slices"

	"github.com/redis/go-redis/v9"
)

const redisScanCount = 100

// RedisStore is a Store backed by Redis. Values are plain string keys without
// a native TTL: expiry is tracked inside the stored entry so expired entries
// remain readable for the rush window logic.
type RedisStore struct {
	client redis.UniversalClient
	cfg    storeConfig
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a Store using client. The caller owns the client
// lifecycle.
func NewRedisStore(client redis.UniversalClient, opts ...StoreOption) *RedisStore {
	return &RedisStore{
		client: client,
		cfg:    applyStoreOptions(opts),
	}
}

func (s *RedisStore) prefixKey(key string) string {
	if s.cfg.prefix == "" {
		return key
	}
	return s.cfg.prefix + ":" + key
}

func (s *RedisStore) Contains(ctx context.Context, key string) (bool, error) {
	qctx, cancel := s.cfg.queryCtx(ctx)
	defer cancel()
	n, err := s.client.Exists(qctx, s.prefixKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	qctx, cancel := s.cfg.queryCtx(ctx)
	defer cancel()
	val, err := s.client.Get(qctx, s.prefixKey(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value string) error {
	qctx, cancel := s.cfg.queryCtx(ctx)
	defer cancel()
	return s.client.Set(qctx, s.prefixKey(key), value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	qctx, cancel := s.cfg.queryCtx(ctx)
	defer cancel()
	n, err := s.client.Del(qctx, s.prefixKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear deletes every key under the prefix, or every key of the database when
// no prefix is set. Keys are collected with SCAN on the connected node before
// any is deleted: deleting mid-scan can make the cursor skip keys.
func (s *RedisStore) Clear(ctx context.Context) error {
	qctx, cancel := s.cfg.queryCtx(ctx)
	defer cancel()
	match := "*"
	if s.cfg.prefix != "" {
		match = s.cfg.prefix + ":*"
	}
	var keys []string
	iter := s.client.Scan(qctx, 0, match, redisScanCount).Iterator()
	for iter.Next(qctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	for batch := range slices.Chunk(keys, redisScanCount) {
		if err := s.client.Del(qctx, batch...).Err(); err != nil {
			return err
		}
	}
	return nil
}
