// Package oracle aggregates price observations from multiple sources: a
// bounded ring of recent (timestamp, price, source) samples per pair,
// reduced to a manipulation-resistant median and a time-weighted average.
// Ingestion is push-fed; the aggregator performs no I/O of its own.
package oracle

import (
	"math"
	"sort"
	"sync"

	"github.com/driftline-labs/dexcore/pkg/types"
	"github.com/driftline-labs/dexcore/pkg/xerr"
)

// Observation is one source's price report at a point in time.
type Observation struct {
	Source    string
	Price     float64
	Timestamp int64 // unix seconds
}

// ring is a fixed-capacity circular buffer of observations, oldest
// overwritten first. Bounding capacity is what makes the median resistant
// to a single source flooding the feed: an attacker controlling one source
// can displace at most capacity-1 other observations, never all of them,
// as long as other sources keep reporting.
type ring struct {
	buf   []Observation
	head  int // next write index
	count int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]Observation, capacity)}
}

func (r *ring) push(o Observation) {
	r.buf[r.head] = o
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// snapshot returns every live observation, oldest first.
func (r *ring) snapshot() []Observation {
	out := make([]Observation, 0, r.count)
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// Aggregator tracks one ring per pair.
type Aggregator struct {
	mu       sync.RWMutex
	capacity int
	rings    map[types.Pair]*ring
}

// New creates an aggregator where each pair's ring holds up to capacity
// observations.
func New(capacity int) *Aggregator {
	if capacity <= 0 {
		capacity = 64
	}
	return &Aggregator{capacity: capacity, rings: make(map[types.Pair]*ring)}
}

// Push records an observation for pair, creating its ring on first use.
func (a *Aggregator) Push(pair types.Pair, o Observation) {
	a.mu.Lock()
	defer a.mu.Unlock()

	r, ok := a.rings[pair]
	if !ok {
		r = newRing(a.capacity)
		a.rings[pair] = r
	}
	r.push(o)
}

// Median returns the median price across the current ring for pair.
// Returns NoData if the ring is empty.
func (a *Aggregator) Median(pair types.Pair) (float64, error) {
	a.mu.RLock()
	r, ok := a.rings[pair]
	a.mu.RUnlock()
	if !ok {
		return 0, xerr.E(xerr.NoData, "oracle.Median", nil, "pair", pair.String())
	}

	obs := r.snapshot()
	if len(obs) == 0 {
		return 0, xerr.E(xerr.NoData, "oracle.Median", nil, "pair", pair.String())
	}

	prices := make([]float64, len(obs))
	for i, o := range obs {
		prices[i] = o.Price
	}
	sort.Float64s(prices)

	mid := len(prices) / 2
	if len(prices)%2 == 1 {
		return prices[mid], nil
	}
	// Even count: the average of the two middle values, rounded down, not
	// the plain float64 average.
	return math.Floor((prices[mid-1] + prices[mid]) / 2), nil
}

// TWAP computes the time-weighted average price over the trailing window
// [now-horizon, now], where now is the timestamp of the most recent
// observation in the ring. The weight of observation i is
// min(t_{i+1}, now) - max(t_i, now-horizon), clipped to >= 0: an
// observation whose own timestamp precedes the window still contributes the
// partial overlap of its holding interval with the window, it is not
// dropped outright. Returns InsufficientData if the ring holds fewer than
// two observations (a single point has no time span to weight against).
func (a *Aggregator) TWAP(pair types.Pair, horizonSeconds int64) (float64, error) {
	a.mu.RLock()
	r, ok := a.rings[pair]
	a.mu.RUnlock()
	if !ok {
		return 0, xerr.E(xerr.InsufficientData, "oracle.TWAP", nil, "pair", pair.String(), "have", 0)
	}

	obs := r.snapshot()
	if len(obs) < 2 {
		return 0, xerr.E(xerr.InsufficientData, "oracle.TWAP", nil, "pair", pair.String(), "have", len(obs))
	}

	sort.Slice(obs, func(i, j int) bool { return obs[i].Timestamp < obs[j].Timestamp })

	now := obs[len(obs)-1].Timestamp
	cutoff := now - horizonSeconds

	var weightedSum, totalWeight float64
	for i, o := range obs {
		next := now
		if i+1 < len(obs) {
			next = obs[i+1].Timestamp
		}
		lo := o.Timestamp
		if lo < cutoff {
			lo = cutoff
		}
		w := float64(next - lo)
		if w < 0 {
			w = 0
		}
		weightedSum += o.Price * w
		totalWeight += w
	}
	if totalWeight == 0 {
		// Every holding interval falls outside the window, or all
		// observations share one timestamp: fall back to a simple mean
		// rather than divide by zero.
		var sum float64
		for _, o := range obs {
			sum += o.Price
		}
		return sum / float64(len(obs)), nil
	}
	return weightedSum / totalWeight, nil
}

// Count returns the number of live observations held for pair.
func (a *Aggregator) Count(pair types.Pair) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	r, ok := a.rings[pair]
	if !ok {
		return 0
	}
	return r.count
}
