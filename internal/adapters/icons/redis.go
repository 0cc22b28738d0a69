package icons

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobrunner/geofacet/internal/ports/output"
)

const keyPrefix = "geofacet:icon:"

// DefaultCacheTTL is used when no TTL is configured.
const DefaultCacheTTL = time.Hour

// RedisCache is a process-wide cache in front of another IconLookup. Cache
// failures never fail a lookup; the wrapped lookup is used instead.
type RedisCache struct {
	client  redis.Cmdable
	next    output.IconLookup
	ttl     time.Duration
	metrics output.MetricsCollector
	logger  *slog.Logger
}

// NewRedisCache wraps next with a Redis cache.
func NewRedisCache(client redis.Cmdable, next output.IconLookup, ttl time.Duration, metrics output.MetricsCollector, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client:  client,
		next:    next,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger.With("component", "icon_cache"),
	}
}

// OpenRedis creates a client for addr. It returns nil when addr is empty.
func OpenRedis(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
}

func cacheKey(typ, iconID string) string {
	return keyPrefix + typ + ":" + iconID
}

// ResolveIcon implements output.IconLookup.
func (c *RedisCache) ResolveIcon(ctx context.Context, typ, iconID string) (string, error) {
	key := cacheKey(typ, iconID)

	path, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		c.metrics.IncIconLookups(output.IconCacheShared, true)
		return path, nil
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("icon cache read failed", "key", key, "error", err)
	}
	c.metrics.IncIconLookups(output.IconCacheShared, false)

	path, err = c.next.ResolveIcon(ctx, typ, iconID)
	if err != nil {
		return "", err
	}

	if err := c.client.Set(ctx, key, path, c.ttl).Err(); err != nil {
		c.logger.Warn("icon cache write failed", "key", key, "error", err)
	}
	return path, nil
}

// Invalidate drops every cached icon path, e.g. after a catalog reload.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
