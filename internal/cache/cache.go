package cache

import (
	"context"

	"github.com/dinematters/dinematters/internal/config"
	"github.com/dinematters/dinematters/internal/logger"
)

// Cache defines the caching operations used across the application.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration interface{})
	Delete(ctx context.Context, key string)
	DeleteByPrefix(ctx context.Context, prefix string)
	Flush(ctx context.Context)
}

// CacheType represents the type of cache to use
type CacheType string

const (
	// CacheTypeInMemory represents an in-memory cache
	CacheTypeInMemory CacheType = "inmemory"
)

// Initialize initializes the cache system based on the specified type
func Initialize(config *config.Configuration, log *logger.Logger) Cache {
	log.Infow("initializing cache", "type", config.Cache.Type)

	InitializeInMemoryCache()
	return GetInMemoryCache()
}

// TypedGet attempts to convert a cache value to the specified type.
// Returns the typed value and true if successful, nil and false otherwise.
func TypedGet[T any](ctx context.Context, c Cache, key string) (*T, bool) {
	value, found := c.Get(ctx, key)
	if !found || value == nil {
		return nil, false
	}
	typed, ok := value.(*T)
	if !ok {
		return nil, false
	}
	return typed, true
}
