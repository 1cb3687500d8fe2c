// Package memory provides process-local adapters for single-instance deployments
// and development. Nothing here survives a restart.
package memory

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rejoiceinstitute/rejoice-web/internal/ports"
)

// LocalCache is a bounded LRU implementing ports.LocalCache. Entries expire
// TTL after their last write; the least recently used entry is evicted when full.
type LocalCache struct {
	mu    sync.Mutex
	cap   int
	ttl   time.Duration
	ll    *list.List // front = most recently used
	items map[string]*list.Element
	now   func() time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
	evicts atomic.Uint64
}

var _ ports.LocalCache = (*LocalCache)(nil)

type cacheEntry struct {
	key    string
	value  string
	expiry time.Time // zero means no expiry
}

// LocalCacheConfig configures NewLocalCache.
type LocalCacheConfig struct {
	Capacity int           // default 10000
	TTL      time.Duration // zero disables expiry
	Now      func() time.Time
}

// NewLocalCache creates an empty cache.
func NewLocalCache(cfg LocalCacheConfig) *LocalCache {
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = 10000
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &LocalCache{
		cap:   capacity,
		ttl:   cfg.TTL,
		ll:    list.New(),
		items: make(map[string]*list.Element),
		now:   now,
	}
}

func (c *LocalCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return "", false, nil
	}
	ent := el.Value.(*cacheEntry)
	if !ent.expiry.IsZero() && c.now().After(ent.expiry) {
		c.removeLocked(el)
		c.misses.Add(1)
		return "", false, nil
	}
	c.ll.MoveToFront(el)
	c.hits.Add(1)
	return ent.value, true, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string) error {
	if key == "" {
		return errors.New("cache key cannot be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var exp time.Time
	if c.ttl > 0 {
		exp = c.now().Add(c.ttl)
	}
	if el, ok := c.items[key]; ok {
		ent := el.Value.(*cacheEntry)
		ent.value = value
		ent.expiry = exp
		c.ll.MoveToFront(el)
		return nil
	}
	c.items[key] = c.ll.PushFront(&cacheEntry{key: key, value: value, expiry: exp})
	for c.ll.Len() > c.cap {
		c.removeLocked(c.ll.Back())
		c.evicts.Add(1)
	}
	return nil
}

func (c *LocalCache) Remove(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeLocked(el)
	}
	return nil
}

// Len returns the number of entries, expired or not.
func (c *LocalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// LocalCacheStats are counters for observability.
type LocalCacheStats struct {
	Hits, Misses, Evictions uint64
	Size, Capacity          int
}

// Stats returns a snapshot of counters and sizes.
func (c *LocalCache) Stats() LocalCacheStats {
	return LocalCacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evicts.Load(),
		Size:      c.Len(),
		Capacity:  c.cap,
	}
}

func (c *LocalCache) removeLocked(el *list.Element) {
	c.ll.Remove(el)
	delete(c.items, el.Value.(*cacheEntry).key)
}
