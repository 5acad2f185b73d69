// Package cache provides the key-value caches used for upstream responses.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cacher defines the caching interface.
type Cacher interface {
	GetCache(ctx context.Context, key string) ([]byte, bool)
	SetCache(ctx context.Context, key string, val []byte) error
}

// MemoryCache implements Cacher in process memory. Entries expire after the configured TTL.
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates a cache whose entries live for ttl. A ttl of 0 keeps entries forever.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	expiry := gocache.NoExpiration
	cleanup := time.Duration(0)
	if ttl > 0 {
		expiry = ttl
		cleanup = 2 * ttl
	}
	return &MemoryCache{store: gocache.New(expiry, cleanup)}
}

func (c *MemoryCache) GetCache(ctx context.Context, key string) ([]byte, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (c *MemoryCache) SetCache(ctx context.Context, key string, val []byte) error {
	c.store.SetDefault(key, val)
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.store.ItemCount()
}
