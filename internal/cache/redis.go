package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fjacquet/donor-mapper/internal/logging"
)

// RedisCache stores entries in Redis with SETEX semantics.
type RedisCache struct {
	client *redis.Client
	logger logging.Logger
}

// NewRedisCache connects to the Redis server at url (redis://host:port/db).
// An unreachable server is logged and tolerated; every operation then
// degrades to a miss until the server comes back.
func NewRedisCache(ctx context.Context, url string, logger logging.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	c := NewRedisCacheFromClient(redis.NewClient(opts), logger)

	if err := c.client.Ping(ctx).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis not reachable, cache will behave as empty",
			logging.Field{Key: logging.FieldComponent, Value: "cache"})
	}
	return c, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client, logger logging.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logging.OrDiscard(logger)}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).Debug("Redis get failed",
				logging.Field{Key: logging.FieldCacheKey, Value: key})
		}
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.SetEx(ctx, key, value, ttl).Err(); err != nil {
		c.logger.WithError(err).Debug("Redis set failed",
			logging.Field{Key: logging.FieldCacheKey, Value: key})
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.WithError(err).Debug("Redis delete failed",
			logging.Field{Key: logging.FieldCacheKey, Value: key})
	}
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
