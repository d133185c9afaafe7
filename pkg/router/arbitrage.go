package router

import (
	"math"

	"github.com/driftline-labs/dexcore/pkg/types"
)

// DetectArbitrageCycle runs Bellman-Ford over the same log-space weights as
// ShortestPath. A negative cycle in that space is a token sequence whose
// prices compound to more than 1 — a risk-free arbitrage loop. Unlike
// ShortestPath, this never assumes non-negative weights, since detecting
// exactly the case Dijkstra cannot handle is the point. Returns the cycle
// as a token sequence (empty if none exists) starting and ending on the
// same token.
func (g *Graph) DetectArbitrageCycle() []types.TokenID {
	tokens := g.Tokens()
	if len(tokens) == 0 {
		return nil
	}

	dist := make(map[types.TokenID]float64, len(tokens))
	pred := make(map[types.TokenID]Edge, len(tokens))
	for _, t := range tokens {
		dist[t] = 0 // virtual source connected to every node at cost 0
	}

	var lastRelaxed types.TokenID
	relaxedAny := false

	for i := 0; i < len(tokens); i++ {
		relaxedAny = false
		for _, from := range tokens {
			for _, e := range g.edgesFrom(from) {
				if e.Price <= 0 {
					continue
				}
				w := -math.Log(e.Price)
				if dist[from]+w < dist[e.To]-1e-12 {
					dist[e.To] = dist[from] + w
					pred[e.To] = e
					lastRelaxed = e.To
					relaxedAny = true
				}
			}
		}
		if !relaxedAny {
			return nil
		}
	}

	// One more relaxation pass found an improvement: lastRelaxed lies on or
	// downstream of a negative cycle. Walk predecessors len(tokens) times to
	// guarantee landing inside the cycle, then walk until repeat.
	node := lastRelaxed
	for i := 0; i < len(tokens); i++ {
		e, ok := pred[node]
		if !ok {
			return nil
		}
		node = e.From
	}

	cycle := []types.TokenID{node}
	seen := map[types.TokenID]bool{node: true}
	cur := node
	for {
		e, ok := pred[cur]
		if !ok {
			return nil
		}
		cur = e.From
		cycle = append(cycle, cur)
		if cur == node {
			break
		}
		if seen[cur] {
			// Shouldn't happen if node truly sits on the cycle; bail safely.
			return nil
		}
		seen[cur] = true
	}

	// cycle was built backwards from node; reverse it into forward order.
	for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
		cycle[i], cycle[j] = cycle[j], cycle[i]
	}
	return cycle
}
