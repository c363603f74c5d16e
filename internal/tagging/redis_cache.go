package tagging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "shoptag:tag:"

// RedisCache shares tag name lookups between replicas. Redis failures are
// logged and reported as misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// OpenRedisCache connects to the Redis instance at rawURL.
func OpenRedisCache(ctx context.Context, rawURL string, ttl time.Duration, logger *slog.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisCache(client, ttl, logger), nil
}

func (c *RedisCache) Get(ctx context.Context, name string) (int64, bool) {
	id, err := c.client.Get(ctx, redisKeyPrefix+cacheKey(name)).Int64()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "tag cache read failed", "tag", name, "error", err)
		}
		return 0, false
	}
	return id, id > 0
}

func (c *RedisCache) Set(ctx context.Context, name string, id int64) {
	if id <= 0 {
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+cacheKey(name), id, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "tag cache write failed", "tag", name, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, name string) {
	if err := c.client.Del(ctx, redisKeyPrefix+cacheKey(name)).Err(); err != nil {
		c.logger.WarnContext(ctx, "tag cache delete failed", "tag", name, "error", err)
	}
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
