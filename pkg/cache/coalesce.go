package cache

import "golang.org/x/sync/singleflight"

// Group coalesces concurrent fetches for the same key into a single
// in-flight request (spec.md §5: "multiple awaited fetches for the same
// key should de-duplicate to a single in-flight request"). It wraps a
// TTLCache with golang.org/x/sync/singleflight the way the teacher wraps
// its decorator cache with a mutex-guarded in-flight map, but delegates
// the de-duplication itself to the stdlib-adjacent x/sync primitive
// rather than hand-rolling it.
type Group struct {
	cache *TTLCache
	flight singleflight.Group
}

// NewGroup creates a coalescing cache with the given TTL and max size.
func NewGroup(ttl int64, maxSize int) *Group {
	return &Group{cache: NewTTLCache(durationFromSeconds(ttl), maxSize)}
}

// NewGroupWithCache wraps an existing TTLCache with coalescing.
func NewGroupWithCache(c *TTLCache) *Group {
	return &Group{cache: c}
}

// Fetch returns the cached value for key if present; otherwise it calls
// fn exactly once across any concurrent callers sharing the same key,
// caches the result, and returns it to all of them.
func (g *Group) Fetch(key string, fn func() (interface{}, error)) (interface{}, error) {
	if v, ok := g.cache.Get(key); ok {
		return v, nil
	}

	v, err, _ := g.flight.Do(key, func() (interface{}, error) {
		if v, ok := g.cache.Get(key); ok {
			return v, nil
		}
		result, err := fn()
		if err != nil {
			return nil, err
		}
		g.cache.Set(key, result)
		return result, nil
	})
	return v, err
}

func (g *Group) Clear() { g.cache.Clear() }
func (g *Group) Size() int { return g.cache.Size() }
