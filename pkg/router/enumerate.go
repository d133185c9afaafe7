package router

import (
	"container/heap"
	"math"

	"github.com/driftline-labs/dexcore/pkg/types"
)

func logPrice(p float64) float64 { return math.Log(p) }

// maxEnumeratedPaths bounds the DFS fan-out so a densely connected graph
// can't make enumeration itself the bottleneck; callers needing an
// exhaustive search should raise it explicitly.
const maxEnumeratedPaths = 4096

// EnumeratePaths performs a bounded depth-first search for every simple
// path from src to dst of at most maxHops edges, and returns the best
// limit routes ranked by ascending Weight (i.e. best price first) using a
// bounded max-heap so only the top `limit` candidates are retained in
// memory regardless of how many paths the DFS visits.
func (g *Graph) EnumeratePaths(src, dst types.TokenID, maxHops, limit int) []Route {
	if limit <= 0 {
		return nil
	}

	best := &routeMaxHeap{}
	heap.Init(best)

	visited := map[types.TokenID]bool{src: true}
	var visitedCount int

	var walk func(token types.TokenID, path []PoolID, hops []types.TokenID, edges []Edge, weight, fee float64)
	walk = func(token types.TokenID, path []PoolID, hops []types.TokenID, edges []Edge, weight, fee float64) {
		if visitedCount >= maxEnumeratedPaths {
			return
		}
		visitedCount++

		if token == dst && len(path) > 0 {
			r := Route{
				Path:     append([]PoolID(nil), path...),
				Tokens:   append([]types.TokenID(nil), hops...),
				Edges:    append([]Edge(nil), edges...),
				Weight:   weight,
				TotalFee: fee,
			}
			pushBounded(best, r, limit)
			return
		}
		if len(path) >= maxHops {
			return
		}
		for _, e := range g.edgesFrom(token) {
			if e.Price <= 0 || visited[e.To] {
				continue
			}
			visited[e.To] = true
			walk(e.To, append(path, e.PoolID), append(hops, e.To), append(edges, e), weight-logPrice(e.Price), fee+e.Fee)
			delete(visited, e.To)
		}
	}
	walk(src, nil, []types.TokenID{src}, nil, 0, 0)

	out := make([]Route, best.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(best).(Route)
	}
	return out
}

// pushBounded keeps at most `limit` routes in h, the worst (per the route
// tie-break order) evicted first. h is a max-heap on that order, so
// its root is always the current worst kept candidate.
func pushBounded(h *routeMaxHeap, r Route, limit int) {
	if h.Len() < limit {
		heap.Push(h, r)
		return
	}
	if r.less((*h)[0]) {
		(*h)[0] = r
		heap.Fix(h, 0)
	}
}

type routeMaxHeap []Route

func (h routeMaxHeap) Len() int           { return len(h) }
func (h routeMaxHeap) Less(i, j int) bool { return h[j].less(h[i]) } // max-heap: worst on top
func (h routeMaxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *routeMaxHeap) Push(x interface{}) { *h = append(*h, x.(Route)) }
func (h *routeMaxHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
