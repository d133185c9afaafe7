package router

import (
	"container/heap"
	"math"

	"github.com/driftline-labs/dexcore/pkg/types"
	"github.com/driftline-labs/dexcore/pkg/xerr"
)

// Route is a sequence of pool hops from one token to another.
type Route struct {
	Path     []PoolID
	Tokens   []types.TokenID // len(Tokens) == len(Path)+1
	Edges    []Edge          // the edges actually traversed, in hop order
	Weight   float64         // sum of -log(price) along the path; lower is better
	TotalFee float64         // sum of per-hop fees, for tie-breaking
}

// dexTags returns the route's DEX-tag sequence, for lexicographic
// tie-breaking.
func (r Route) dexTags() []string {
	tags := make([]string, len(r.Edges))
	for i, e := range r.Edges {
		tags[i] = e.DEXTag
	}
	return tags
}

// weightEpsilon treats composite weights within this tolerance as tied, so
// that two paths whose rates are mathematically equal (e.g. 0.9*0.9 vs
// 0.81) aren't split apart by the last bit of floating-point log/sum error.
const weightEpsilon = 1e-9

// less implements the route tie-break order: lower Weight first
// (higher composite rate); on a weight tie, fewer hops; then lower total
// fee; then a lexicographically smaller DEX-tag sequence.
func (r Route) less(other Route) bool {
	if math.Abs(r.Weight-other.Weight) > weightEpsilon {
		return r.Weight < other.Weight
	}
	if len(r.Path) != len(other.Path) {
		return len(r.Path) < len(other.Path)
	}
	if r.TotalFee != other.TotalFee {
		return r.TotalFee < other.TotalFee
	}
	at, bt := r.dexTags(), other.dexTags()
	for i := 0; i < len(at) && i < len(bt); i++ {
		if at[i] != bt[i] {
			return at[i] < bt[i]
		}
	}
	return len(at) < len(bt)
}

type pqItem struct {
	token types.TokenID
	cost  float64
	path  []PoolID
	hops  []types.TokenID
	edges []Edge
	fee   float64
}

type priceQueue []*pqItem

func (q priceQueue) Len() int            { return len(q) }
func (q priceQueue) Less(i, j int) bool  { return q[i].cost < q[j].cost }
func (q priceQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *priceQueue) Push(x interface{}) { *q = append(*q, x.(*pqItem)) }
func (q *priceQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// ShortestPath runs Dijkstra over log-space edge weights (cost = -log(price),
// so minimizing cost maximizes the product of prices along the path, i.e.
// the output amount for a unit input). Bounded to maxHops edges: distances
// are tracked per (token, hop count), so a cheaper but longer prefix never
// hides a path that fits the bound. If dst is not reached, returns
// HopLimitExceeded when the search cut at least one path off at maxHops
// (whether or not a longer path would have reached dst), NoPath otherwise.
func (g *Graph) ShortestPath(src, dst types.TokenID, maxHops int) (Route, error) {
	if src == dst {
		return Route{}, xerr.E(xerr.Validation, "router.ShortestPath", nil, "reason", "source equals destination")
	}

	type hopState struct {
		token types.TokenID
		hops  int
	}
	dist := map[hopState]float64{{src, 0}: 0}
	pq := &priceQueue{{token: src, cost: 0, hops: []types.TokenID{src}}}
	heap.Init(pq)

	sawOverLimitPath := false

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*pqItem)
		if cur.cost > dist[hopState{cur.token, len(cur.path)}] {
			continue // stale entry
		}
		if cur.token == dst {
			return Route{Path: cur.path, Tokens: cur.hops, Edges: cur.edges, Weight: cur.cost, TotalFee: cur.fee}, nil
		}
		if len(cur.path) >= maxHops {
			sawOverLimitPath = true
			continue
		}
		for _, e := range g.edgesFrom(cur.token) {
			if e.Price <= 0 {
				continue // non-positive quote, not a usable edge
			}
			cost := cur.cost - math.Log(e.Price)
			key := hopState{e.To, len(cur.path) + 1}
			if existing, ok := dist[key]; !ok || cost < existing {
				dist[key] = cost
				newPath := append(append([]PoolID(nil), cur.path...), e.PoolID)
				newHops := append(append([]types.TokenID(nil), cur.hops...), e.To)
				newEdges := append(append([]Edge(nil), cur.edges...), e)
				heap.Push(pq, &pqItem{token: e.To, cost: cost, path: newPath, hops: newHops, edges: newEdges, fee: cur.fee + e.Fee})
			}
		}
	}

	if sawOverLimitPath {
		return Route{}, xerr.E(xerr.HopLimitExceeded, "router.ShortestPath", nil, "max_hops", maxHops)
	}
	return Route{}, xerr.E(xerr.NoPath, "router.ShortestPath", nil, "src", string(src), "dst", string(dst))
}
