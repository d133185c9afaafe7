package router

import (
	"sync"

	"github.com/driftline-labs/dexcore/pkg/types"
)

type cacheKey struct {
	src, dst types.TokenID
}

type cacheEntry struct {
	route      Route
	generation uint64
}

// routeCache memoizes the best route for a (source, destination) pair. It
// invalidates conservatively: the whole cache is checked against the
// graph's generation counter on every read, so any edge mutation anywhere
// in the graph (not just on the cached path) evicts a stale entry rather
// than risk serving a route priced against reserves that have since moved.
type routeCache struct {
	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

func newRouteCache() *routeCache {
	return &routeCache{entries: make(map[cacheKey]cacheEntry)}
}

func (c *routeCache) get(src, dst types.TokenID, generation uint64) (Route, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey{src, dst}]
	if !ok || e.generation != generation {
		return Route{}, false
	}
	return e.route, true
}

func (c *routeCache) put(src, dst types.TokenID, generation uint64, route Route) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey{src, dst}] = cacheEntry{route: route, generation: generation}
}
