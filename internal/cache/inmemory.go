package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// InMemoryCache implements the Cache interface with a process-local store.
type InMemoryCache struct {
	store *gocache.Cache
}

var (
	inMemoryCache *InMemoryCache
	inMemoryOnce  sync.Once
)

// NewInMemoryCache creates a new in-memory cache
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		store: gocache.New(ExpiryDefaultInMemory, 10*time.Minute),
	}
}

// InitializeInMemoryCache initializes the global in-memory cache instance
func InitializeInMemoryCache() {
	inMemoryOnce.Do(func() {
		inMemoryCache = NewInMemoryCache()
	})
}

// GetInMemoryCache returns the global in-memory cache instance
func GetInMemoryCache() *InMemoryCache {
	InitializeInMemoryCache()
	return inMemoryCache
}

// Get retrieves a value from the cache
func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	return c.store.Get(key)
}

// Set stores a value in the cache. The expiration parameter accepts a
// time.Duration; anything else falls back to the default expiry.
func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, expiration interface{}) {
	ttl := ExpiryDefaultInMemory
	if d, ok := expiration.(time.Duration); ok && d > 0 {
		ttl = d
	}
	c.store.Set(key, value, ttl)
}

// Delete removes a value from the cache
func (c *InMemoryCache) Delete(ctx context.Context, key string) {
	c.store.Delete(key)
}

// DeleteByPrefix removes all values whose key starts with the given prefix
func (c *InMemoryCache) DeleteByPrefix(ctx context.Context, prefix string) {
	for key := range c.store.Items() {
		if strings.HasPrefix(key, prefix) {
			c.store.Delete(key)
		}
	}
}

// Flush removes all values from the cache
func (c *InMemoryCache) Flush(ctx context.Context) {
	c.store.Flush()
}
