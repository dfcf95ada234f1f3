package router

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/redis/go-redis/v9"
)

// maxCacheKeyLen bounds cache keys; longer queries are truncated.
const maxCacheKeyLen = 150

// CacheKey normalizes a query into its decision-cache key. Truncation
// counts runes so a multi-byte character is never split.
func CacheKey(query string) string {
	key := NormalizeQuery(query)
	if utf8.RuneCountInString(key) > maxCacheKeyLen {
		runes := []rune(key)
		key = string(runes[:maxCacheKeyLen])
	}
	return key
}

// Cache stores resolved route decisions keyed by normalized query text.
type Cache interface {
	// Get returns the cached decision for a key, if present.
	Get(ctx context.Context, key string) (*Decision, bool)

	// Put stores a decision under a key.
	Put(ctx context.Context, key string, d *Decision)

	// Clear removes all entries.
	Clear(ctx context.Context) error

	// Len returns the number of cached entries.
	Len(ctx context.Context) int
}

// MemoryCache is a mutex-guarded in-process cache with FIFO eviction.
// Writes to the same key are last-write-wins.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*Decision
	order   []string
	maxSize int
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 200
	}
	return &MemoryCache{
		entries: make(map[string]*Decision),
		maxSize: maxSize,
	}
}

// Get returns the cached decision for a key.
func (c *MemoryCache) Get(_ context.Context, key string) (*Decision, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	cp := *d
	return &cp, true
}

// Put stores a decision, evicting the oldest entry when full.
func (c *MemoryCache) Put(_ context.Context, key string, d *Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.maxSize && len(c.order) > 0 {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}

	cp := *d
	c.entries[key] = &cp
}

// Clear removes all entries.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Decision)
	c.order = nil
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len(_ context.Context) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache persists decisions in Redis so multiple gateway instances
// share one decision cache. Entries expire after the configured TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to Redis and returns a decision cache.
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: "agw:route:",
		ttl:    ttl,
	}, nil
}

// Get returns the cached decision for a key.
func (c *RedisCache) Get(ctx context.Context, key string) (*Decision, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}

	var d Decision
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, false
	}
	return &d, true
}

// Put stores a decision. Errors are swallowed: the cache is an
// optimization, not a source of truth.
func (c *RedisCache) Put(ctx context.Context, key string, d *Decision) {
	data, err := json.Marshal(d)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.prefix+key, data, c.ttl)
}

// Clear removes all cached decisions.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("deleting cache keys: %w", err)
	}
	return nil
}

// Len returns the number of cached decisions.
func (c *RedisCache) Len(ctx context.Context) int {
	var count int
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
