// Package redis implements registry/cache.ItemCache against Redis, for
// multi-instance deployments that need a shared Get-path cache.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chirino/memstore/internal/config"
	registrycache "github.com/chirino/memstore/internal/registry/cache"
	"github.com/chirino/memstore/internal/store"
	goredis "github.com/redis/go-redis/v9"
)

const defaultTTL = 10 * time.Minute

func init() {
	registrycache.Register(registrycache.Plugin{
		Name:   "redis",
		Loader: load,
	})
}

func load(ctx context.Context) (registrycache.ItemCache, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis cache: MEMSTORE_REDIS_URL is required")
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return LoadFromURLWithTTL(ctx, cfg.RedisURL, ttl)
}

// LoadFromURLWithTTL creates a cache with an explicit default TTL.
func LoadFromURLWithTTL(ctx context.Context, redisURL string, ttl time.Duration) (registrycache.ItemCache, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: invalid URL: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis cache: ping failed: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &itemCache{client: client, ttl: ttl}, nil
}

type itemCache struct {
	client *goredis.Client
	ttl    time.Duration
}

// cachedEnvelope wraps a cached Get result. Set always stores Found=true,
// so a lookup that found nothing is cached as a nil Item and served as a
// cache hit until it expires or is invalidated.
type cachedEnvelope struct {
	Found bool
	Item  *store.Item
}

func itemKey(namespace store.Namespace, key string) string {
	return fmt.Sprintf("memstore:item:%s:%s", namespace.Encode(), key)
}

func (c *itemCache) Available() bool { return true }

func (c *itemCache) Get(ctx context.Context, namespace store.Namespace, key string) (*store.Item, bool, error) {
	data, err := c.client.Get(ctx, itemKey(namespace, key)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var env cachedEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, err
	}
	return env.Item, env.Found, nil
}

func (c *itemCache) Set(ctx context.Context, namespace store.Namespace, key string, item *store.Item, ttl time.Duration) error {
	data, err := json.Marshal(cachedEnvelope{Found: true, Item: item})
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	return c.client.Set(ctx, itemKey(namespace, key), data, ttl).Err()
}

func (c *itemCache) Invalidate(ctx context.Context, namespace store.Namespace, key string) error {
	return c.client.Del(ctx, itemKey(namespace, key)).Err()
}

var _ registrycache.ItemCache = (*itemCache)(nil)
