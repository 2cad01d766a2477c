package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "printcalc:draft:"

// RedisStore keeps drafts in redis so they survive restarts and are shared
// between server instances. Each write refreshes the TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, owner string) (Draft, error) {
	data, err := s.rdb.Get(ctx, redisKey(owner)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Draft{}, nil
		}
		return Draft{}, fmt.Errorf("load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, fmt.Errorf("decode draft: %w", err)
	}
	return d, nil
}

func (s *RedisStore) Put(ctx context.Context, owner string, d Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, redisKey(owner), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, owner string) error {
	return s.rdb.Del(ctx, redisKey(owner)).Err()
}

func redisKey(owner string) string {
	return redisKeyPrefix + owner
}
