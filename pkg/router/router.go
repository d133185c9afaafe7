package router

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/driftline-labs/dexcore/pkg/types"
	"github.com/driftline-labs/dexcore/pkg/xerr"
)

// Config bounds a Router's search: MaxHops caps path length, Budget caps
// wall-clock search time so a pathological graph cannot stall a caller
// indefinitely.
type Config struct {
	MaxHops int
	Budget  time.Duration
}

// Router finds the best swap route between two tokens over a Graph, caching
// results per (source, destination) until the graph changes.
type Router struct {
	graph *Graph
	cache *routeCache
	cfg   Config

	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64
}

func New(graph *Graph, cfg Config) *Router {
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = 4
	}
	if cfg.Budget <= 0 {
		cfg.Budget = 50 * time.Millisecond
	}
	return &Router{graph: graph, cache: newRouteCache(), cfg: cfg}
}

// FindRoute returns the best-priced route from src to dst, consulting the
// cache first. On a cache miss it runs Dijkstra under the configured
// wall-clock budget, so a caller always gets a bounded-latency answer
// even against a large or adversarial graph.
func (r *Router) FindRoute(ctx context.Context, src, dst types.TokenID) (Route, error) {
	if src == dst {
		return Route{}, xerr.E(xerr.Validation, "router.FindRoute", nil, "reason", "source equals destination")
	}

	gen := r.graph.Generation()
	if cached, ok := r.cache.get(src, dst, gen); ok {
		r.cacheHits.Add(1)
		return cached, nil
	}
	r.cacheMisses.Add(1)

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Budget)
	defer cancel()

	type result struct {
		route Route
		err   error
	}
	done := make(chan result, 1)
	go func() {
		route, err := r.graph.ShortestPath(src, dst, r.cfg.MaxHops)
		done <- result{route, err}
	}()

	select {
	case <-ctx.Done():
		return Route{}, xerr.E(xerr.Timeout, "router.FindRoute", ctx.Err(), "budget", r.cfg.Budget.String())
	case res := <-done:
		if res.err != nil {
			return Route{}, res.err
		}
		r.cache.put(src, dst, gen, res.route)
		return res.route, nil
	}
}

// BestRoutes returns up to limit candidate routes from src to dst, best
// price first, bypassing the single-route cache (callers comparing
// alternates want the full ranked set, not just the winner).
func (r *Router) BestRoutes(ctx context.Context, src, dst types.TokenID, limit int) ([]Route, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Budget)
	defer cancel()

	type result struct {
		routes []Route
	}
	done := make(chan result, 1)
	go func() {
		done <- result{r.graph.EnumeratePaths(src, dst, r.cfg.MaxHops, limit)}
	}()

	select {
	case <-ctx.Done():
		return nil, xerr.E(xerr.Timeout, "router.BestRoutes", ctx.Err(), "budget", r.cfg.Budget.String())
	case res := <-done:
		if len(res.routes) == 0 {
			return nil, xerr.E(xerr.NoPath, "router.BestRoutes", nil, "src", string(src), "dst", string(dst))
		}
		return res.routes, nil
	}
}

// CacheStats returns the cumulative route-cache hit and miss counts.
func (r *Router) CacheStats() (hits, misses uint64) {
	return r.cacheHits.Load(), r.cacheMisses.Load()
}

// CheckArbitrage reports any arbitrage cycle currently present in the
// graph. A non-nil, non-empty result is a risk signal for whoever owns the
// pools on that cycle, not an executable route in itself; this router does
// not execute arbitrage.
func (r *Router) CheckArbitrage() ([]types.TokenID, error) {
	cycle := r.graph.DetectArbitrageCycle()
	if len(cycle) == 0 {
		return nil, nil
	}
	return cycle, xerr.E(xerr.ArbitrageCycle, "router.CheckArbitrage", nil, "cycle_length", len(cycle))
}
