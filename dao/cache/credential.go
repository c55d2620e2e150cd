package cache

import (
	"context"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// RedisCredentialStore 多实例共享 access_token / jsapi_ticket
type RedisCredentialStore struct {
	redis *redis.Client
}

func NewRedisCredentialStore(redis *redis.Client) *RedisCredentialStore {
	return &RedisCredentialStore{redis: redis}
}

func (s *RedisCredentialStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// SetWithTTL 值与过期时间由同一条 SET EX 写入
func (s *RedisCredentialStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.redis.Set(ctx, key, value, ttl).Err()
}

func (s *RedisCredentialStore) Del(ctx context.Context, key string) error {
	return s.redis.Del(ctx, key).Err()
}

// LocalCredentialStore 单实例或未配置 redis 时使用
type LocalCredentialStore struct {
	c *gocache.Cache
}

func NewLocalCredentialStore() *LocalCredentialStore {
	return &LocalCredentialStore{c: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (s *LocalCredentialStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", false, nil
	}
	val, ok := v.(string)
	return val, ok, nil
}

func (s *LocalCredentialStore) SetWithTTL(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	s.c.Set(key, value, ttl)
	return nil
}

func (s *LocalCredentialStore) Del(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}
