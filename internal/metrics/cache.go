package metrics

import (
	"sync"
	"time"

	"github.com/coursemetrics/metrics-warehouse/internal/observability"
)

// cacheKey identifies one computation: metric key plus the date range.
type cacheKey struct {
	metric string
	start  int64
	end    int64
}

func newCacheKey(metric string, start, end time.Time) cacheKey {
	return cacheKey{metric: metric, start: start.Unix(), end: end.Unix()}
}

type cacheEntry struct {
	result   *Result
	storedAt time.Time
}

// resultCache is a mutex-guarded TTL cache for metric results. Entries expire
// a fixed interval after insertion regardless of access; the entry bound only
// kicks in as a safety valve and evicts oldest-first.
type resultCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[cacheKey]cacheEntry
	now        func() time.Time
}

func newResultCache(ttl time.Duration, maxEntries int) *resultCache {
	return &resultCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[cacheKey]cacheEntry),
		now:        time.Now,
	}
}

// get returns a copy of the cached result with Cached set, or nil when the
// key is absent or expired.
func (c *resultCache) get(key cacheKey) *Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		observability.CacheEvents.WithLabelValues("miss").Inc()
		return nil
	}
	if c.now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		observability.CacheEvents.WithLabelValues("expired").Inc()
		return nil
	}

	observability.CacheEvents.WithLabelValues("hit").Inc()
	cached := *entry.result
	cached.Cached = true
	return &cached
}

// put stores a result. Expired entries are swept first; if the cache is still
// full the oldest entry makes room.
func (c *resultCache) put(key cacheKey, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, k)
		}
	}

	if len(c.entries) >= c.maxEntries {
		var oldestKey cacheKey
		var oldestAt time.Time
		first := true
		for k, e := range c.entries {
			if first || e.storedAt.Before(oldestAt) {
				oldestKey, oldestAt, first = k, e.storedAt, false
			}
		}
		delete(c.entries, oldestKey)
	}

	c.entries[key] = cacheEntry{result: result, storedAt: now}
}
