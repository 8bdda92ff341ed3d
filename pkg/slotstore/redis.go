package slotstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hatcher/taskchat/pkg/redisx"
)

const defaultKeyPrefix = "taskchat:slot"

// RedisStore 基于 redis 的槽位存储
type RedisStore struct {
	cli    redisx.Redis
	prefix string
}

func NewRedisStore(cli redisx.Redis, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{cli: cli, prefix: prefix}
}

func (r *RedisStore) redisKey(key string) string {
	return fmt.Sprintf("%s:%s", r.prefix, key)
}

func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.cli.Get(ctx, r.redisKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return val, nil
}

func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	return r.cli.Set(ctx, r.redisKey(key), value, 0).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.cli.Del(ctx, r.redisKey(key)).Err()
}
