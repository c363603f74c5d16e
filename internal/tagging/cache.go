package tagging

import (
	"context"
	"strings"
	"sync"
)

// Cache memoizes tag name -> upstream ID lookups. It is an optimization only:
// entries may be stale and callers fall back to a full upstream lookup.
type Cache interface {
	Get(ctx context.Context, name string) (int64, bool)
	Set(ctx context.Context, name string, id int64)
	Delete(ctx context.Context, name string)
}

// MemoryCache is a process-lifetime Cache safe for concurrent use.
// Concurrent writers may race; the worst case is a redundant upstream lookup.
type MemoryCache struct {
	entries sync.Map
}

// NewMemoryCache constructs an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Get(_ context.Context, name string) (int64, bool) {
	value, ok := c.entries.Load(cacheKey(name))
	if !ok {
		return 0, false
	}
	id, ok := value.(int64)
	return id, ok && id > 0
}

func (c *MemoryCache) Set(_ context.Context, name string, id int64) {
	if id <= 0 {
		return
	}
	c.entries.Store(cacheKey(name), id)
}

func (c *MemoryCache) Delete(_ context.Context, name string) {
	c.entries.Delete(cacheKey(name))
}

// NopCache never remembers anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (int64, bool) { return 0, false }
func (NopCache) Set(context.Context, string, int64)        {}
func (NopCache) Delete(context.Context, string)            {}

func cacheKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
