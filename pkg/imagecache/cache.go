// Package imagecache holds rendered slide images keyed by their exact prompt.
package imagecache

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"knowthepast/pkg/model"
)

// RenderFunc produces the image for a prompt on a cache miss.
type RenderFunc func(ctx context.Context, prompt string) (model.Image, error)

// Cache maps prompt text to an image payload. Entries never expire; Clear drops everything.
// Renders that started before a Clear never write into the cleared cache.
type Cache struct {
	store  *gocache.Cache
	flight singleflight.Group

	mu  sync.RWMutex
	gen uint64
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{store: gocache.New(gocache.NoExpiration, 0)}
}

// Get returns the cached image for prompt.
func (c *Cache) Get(prompt string) (model.Image, bool) {
	v, ok := c.store.Get(prompt)
	if !ok {
		return model.Image{}, false
	}
	img, ok := v.(model.Image)
	return img, ok
}

// Set stores img under prompt. Last writer wins.
func (c *Cache) Set(prompt string, img model.Image) {
	c.store.Set(prompt, img, gocache.NoExpiration)
}

// Clear removes every entry and detaches in-flight renders.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
	c.store.Flush()
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

func (c *Cache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Resolve returns the cached image for prompt, rendering it once on a miss.
// Concurrent callers for the same prompt share one render. hit reports whether no render was needed by this caller.
func (c *Cache) Resolve(ctx context.Context, prompt string, render RenderFunc) (img model.Image, hit bool, err error) {
	if img, ok := c.Get(prompt); ok {
		return img, true, nil
	}

	gen := c.generation()
	key := strconv.FormatUint(gen, 10) + "\x00" + prompt

	// Only the caller whose closure runs can have rendered
	var rendered bool
	v, err, _ := c.flight.Do(key, func() (any, error) {
		if img, ok := c.Get(prompt); ok {
			return img, nil
		}
		rendered = true
		img, err := render(ctx, prompt)
		if err != nil {
			return nil, err
		}
		c.mu.RLock()
		if c.gen == gen {
			c.Set(prompt, img)
		}
		c.mu.RUnlock()
		return img, nil
	})
	if err != nil {
		return model.Image{}, false, err
	}

	img, ok := v.(model.Image)
	if !ok {
		return model.Image{}, false, fmt.Errorf("unexpected value type from singleflight: %T", v)
	}
	return img, !rendered, nil
}
