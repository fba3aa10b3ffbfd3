// Package cache provides a generic read-through cache with per-instance TTL
// and capacity, backed by go-cache.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Options configures a cache instance.
type Options struct {
	// Capacity bounds the number of live entries. Zero means unbounded.
	Capacity int
	// TTL is measured from insertion. Zero means entries never expire.
	TTL time.Duration
	// Clock defaults to time.Now.
	Clock Clock
	// Logger receives debug events. Defaults to discarding.
	Logger *slog.Logger
	// Stats receives hit/miss notifications. Optional.
	Stats Stats
}

// Stats observes cache lookups.
type Stats interface {
	RecordCacheHit(name string)
	RecordCacheMiss(name string)
}

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// Cache maps keys of one resource kind to shared, immutable values.
// Values must not be mutated after Put.
type Cache[K Key, V any] struct {
	name     string
	capacity int
	ttl      time.Duration
	clock    Clock
	logger   *slog.Logger
	stats    Stats

	mu    sync.Mutex // serializes capacity enforcement with inserts
	store *gocache.Cache
	group singleflight.Group
}

// New creates a named cache.
func New[K Key, V any](name string, opts Options) *Cache[K, V] {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	cleanup := time.Duration(0)
	if opts.TTL > 0 {
		cleanup = opts.TTL
	}
	return &Cache[K, V]{
		name:     name,
		capacity: opts.Capacity,
		ttl:      opts.TTL,
		clock:    opts.Clock,
		logger:   opts.Logger,
		stats:    opts.Stats,
		// Freshness is decided against Clock on read; go-cache's own
		// expiration lets its janitor reclaim memory for abandoned keys.
		store: gocache.New(gocache.NoExpiration, cleanup),
	}
}

// Name returns the cache's name.
func (c *Cache[K, V]) Name() string {
	return c.name
}

// Get returns the cached value for key, if present and fresh.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	v, ok := c.lookup(key.CacheKey())
	if c.stats != nil {
		if ok {
			c.stats.RecordCacheHit(c.name)
		} else {
			c.stats.RecordCacheMiss(c.name)
		}
	}
	return v, ok
}

func (c *Cache[K, V]) lookup(k string) (V, bool) {
	var zero V
	raw, ok := c.store.Get(k)
	if !ok {
		return zero, false
	}
	e := raw.(entry[V])
	if c.expired(e) {
		c.dropExpired(k, e.insertedAt)
		return zero, false
	}
	return e.value, true
}

// dropExpired deletes k only if it still holds the entry inserted at
// insertedAt; a concurrent Put wins.
func (c *Cache[K, V]) dropExpired(k string, insertedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.store.Get(k)
	if !ok {
		return
	}
	if e := raw.(entry[V]); e.insertedAt.Equal(insertedAt) && c.expired(e) {
		c.store.Delete(k)
	}
}

func (c *Cache[K, V]) expired(e entry[V]) bool {
	return c.ttl > 0 && !c.clock().Before(e.insertedAt.Add(c.ttl))
}

// Put inserts or replaces the value for key. When the cache is full the
// oldest insertion is evicted.
func (c *Cache[K, V]) Put(key K, value V) {
	k := key.CacheKey()
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store.Get(k); !exists && c.capacity > 0 {
		c.evictLocked()
	}
	expiration := gocache.NoExpiration
	if c.ttl > 0 {
		expiration = c.ttl
	}
	c.store.Set(k, entry[V]{value: value, insertedAt: now}, expiration)
}

// evictLocked drops expired entries, then the oldest ones until a slot is free.
func (c *Cache[K, V]) evictLocked() {
	items := c.store.Items()
	if len(items) < c.capacity {
		return
	}

	var oldestKey string
	var oldest time.Time
	live := 0
	for k, item := range items {
		e := item.Object.(entry[V])
		if c.expired(e) {
			c.store.Delete(k)
			continue
		}
		live++
		if oldestKey == "" || e.insertedAt.Before(oldest) {
			oldestKey, oldest = k, e.insertedAt
		}
	}
	if live >= c.capacity && oldestKey != "" {
		c.logger.Debug("cache full, evicting oldest entry", "cache", c.name, "key", oldestKey)
		c.store.Delete(oldestKey)
	}
}

// GetOrFetch returns the cached value for key or calls fetch and caches its
// result. Concurrent misses for the same key share one fetch. Errors are not
// cached.
func (c *Cache[K, V]) GetOrFetch(ctx context.Context, key K, fetch func(context.Context) (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	k := key.CacheKey()
	res, err, shared := c.group.Do(k, func() (any, error) {
		if v, ok := c.lookup(k); ok {
			return v, nil
		}
		c.logger.Debug("cache miss", "cache", c.name, "key", k)
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.Put(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	if shared {
		c.logger.Debug("shared in-flight fetch", "cache", c.name, "key", k)
	}
	return res.(V), nil
}

// Len returns the number of fresh entries.
func (c *Cache[K, V]) Len() int {
	n := 0
	for _, item := range c.store.Items() {
		if !c.expired(item.Object.(entry[V])) {
			n++
		}
	}
	return n
}
