// Package router finds the best exchange path across a directed weighted
// liquidity graph of pool edges: shortest-price search in log space (so
// multiplying prices along a path becomes summing weights), negative-cycle
// (arbitrage) detection, and a bounded-depth path enumerator feeding a
// per-(source,destination) route cache.
package router

import (
	"sync"

	"github.com/driftline-labs/dexcore/pkg/types"
)

// PoolID identifies one liquidity source (an AMM pool or order book) that
// can quote a price between two tokens.
type PoolID string

// Edge is one directed hop: token From swaps into token To via pool PoolID
// at the given instantaneous price (units of To per unit of From). Fee is
// the hop's fee fraction, already reflected in the fee-adjusted Price; it
// is carried separately only so the router can tie-break and report it,
// not to re-apply it. Liquidity is the available depth, in From-token
// units, that Price can be trusted for
// before a swap starts moving the quoted price; DEXTag is the human-facing
// venue identifier used for tie-breaking and display (often equal to
// PoolID, but kept distinct so one DEX can register several pools).
type Edge struct {
	PoolID    PoolID
	From      types.TokenID
	To        types.TokenID
	Price     float64
	Fee       float64
	Liquidity uint64
	DEXTag    string
}

// Graph is the router's adjacency list, keyed by source token. Edges are
// directed and parallel edges (multiple pools quoting the same token pair)
// are preserved rather than collapsed, so the enumerator can consider every
// liquidity source independently.
type Graph struct {
	mu         sync.RWMutex
	edges      map[types.TokenID][]Edge
	generation uint64 // bumped on every mutation; the route cache keys off this
}

func NewGraph() *Graph {
	return &Graph{edges: make(map[types.TokenID][]Edge)}
}

// UpsertEdge adds or replaces the edge for (poolID, from) -> to with a new
// price, fee, liquidity depth, and DEX tag. A pool that quotes
// bidirectionally registers two edges.
func (g *Graph) UpsertEdge(poolID PoolID, from, to types.TokenID, price, fee float64, liquidity uint64, dexTag string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e := Edge{PoolID: poolID, From: from, To: to, Price: price, Fee: fee, Liquidity: liquidity, DEXTag: dexTag}
	bucket := g.edges[from]
	for i := range bucket {
		if bucket[i].PoolID == poolID && bucket[i].To == to {
			bucket[i] = e
			g.generation++
			return
		}
	}
	g.edges[from] = append(bucket, e)
	g.generation++
}

// RemovePool drops every edge belonging to poolID, in both directions.
func (g *Graph) RemovePool(poolID PoolID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for token, bucket := range g.edges {
		out := bucket[:0]
		for _, e := range bucket {
			if e.PoolID != poolID {
				out = append(out, e)
			}
		}
		g.edges[token] = out
	}
	g.generation++
}

func (g *Graph) edgesFrom(token types.TokenID) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, len(g.edges[token]))
	copy(out, g.edges[token])
	return out
}

// Generation returns the current mutation counter, used by the route cache
// to invalidate conservatively: any edge change anywhere invalidates every
// cached route, since a cheaper path may now exist.
func (g *Graph) Generation() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.generation
}

// Tokens returns every distinct token with at least one outgoing edge.
func (g *Graph) Tokens() []types.TokenID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]types.TokenID, 0, len(g.edges))
	for t := range g.edges {
		out = append(out, t)
	}
	return out
}
