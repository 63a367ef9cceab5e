package plugin

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const (
	DefaultCacheTTL      = 5 * time.Minute
	DefaultCacheCapacity = 100
)

// ResultCache holds successful plugin results keyed by plugin id, effective
// prompt and text. One cache may back many executors.
type ResultCache struct {
	cache *ttlcache.Cache[string, string]
}

// NewResultCache starts a cache with the given ttl, or DefaultCacheTTL when
// ttl is not positive. Close stops its expiry loop.
func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithCapacity[string, string](DefaultCacheCapacity),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go c.Start()
	return &ResultCache{cache: c}
}

func (c *ResultCache) Len() int {
	return c.cache.Len()
}

func (c *ResultCache) Close() {
	c.cache.Stop()
}

// Wrap returns an executor that consults the cache before calling next.
func (c *ResultCache) Wrap(next Executor) *CachedExecutor {
	return &CachedExecutor{next: next, cache: c}
}

// Apply wraps the executor of every plugin in plugins.
func (c *ResultCache) Apply(plugins []Plugin) []Plugin {
	out := make([]Plugin, len(plugins))
	for i, p := range plugins {
		if p.Executor != nil {
			p.Executor = c.Wrap(p.Executor)
		}
		out[i] = p
	}
	return out
}

// CachedExecutor serves repeated requests from a ResultCache. Failures are
// never cached.
type CachedExecutor struct {
	next  Executor
	cache *ResultCache
}

func cacheKey(p *Plugin, text string) string {
	return p.ID + "\x00" + p.Prompt() + "\x00" + text
}

func (e *CachedExecutor) Execute(ctx context.Context, p *Plugin, text string) Result {
	key := cacheKey(p, text)
	if item := e.cache.cache.Get(key); item != nil {
		return Ok(item.Value())
	}

	res := e.next.Execute(ctx, p, text)
	if res.Success() {
		e.cache.cache.Set(key, res.Data(), ttlcache.DefaultTTL)
	}
	return res
}
