// Package redis provides Redis-based adapters for the session layer.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

const (
	defaultPrefix = "rejoice:local:"
	defaultTTL    = 30 * 24 * time.Hour
)

// LocalCache stores cached session snapshots in Redis so they survive process
// restarts and are shared by every replica. Entries expire after TTL of inactivity.
type LocalCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ ports.LocalCache = (*LocalCache)(nil)

// LocalCacheOptions configures a LocalCache. Zero values select defaults.
type LocalCacheOptions struct {
	Prefix string
	TTL    time.Duration
}

// NewLocalCache creates a Redis-backed local cache.
func NewLocalCache(client redis.UniversalClient, opts LocalCacheOptions) *LocalCache {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &LocalCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *LocalCache) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, nil
	}
	v, err := c.client.GetEx(ctx, c.prefix+key, c.ttl).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (c *LocalCache) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *LocalCache) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
