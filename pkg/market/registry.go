package market

import (
	"sync"

	"github.com/driftline-labs/dexcore/pkg/types"
	"github.com/driftline-labs/dexcore/pkg/xerr"
)

// Registry manages the set of tradable pairs, keyed by canonicalised
// Pair.
type Registry struct {
	mu      sync.RWMutex
	markets map[types.Pair]*Market
}

func NewRegistry() *Registry {
	return &Registry{markets: make(map[types.Pair]*Market)}
}

func (r *Registry) Register(m *Market) error {
	if m == nil {
		return xerr.E(xerr.Validation, "registry.Register", nil, "reason", "nil market")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.markets[m.Pair]; exists {
		return xerr.E(xerr.Validation, "registry.Register", nil, "pair", m.Pair.String(), "reason", "already registered")
	}
	r.markets[m.Pair] = m
	return nil
}

func (r *Registry) Get(pair types.Pair) (*Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, exists := r.markets[pair]
	if !exists {
		return nil, xerr.E(xerr.UnknownPair, "registry.Get", nil, "pair", pair.String())
	}
	return m, nil
}

func (r *Registry) List() []*Market {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Market, 0, len(r.markets))
	for _, m := range r.markets {
		out = append(out, m)
	}
	return out
}

func (r *Registry) SetStatus(pair types.Pair, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, exists := r.markets[pair]
	if !exists {
		return xerr.E(xerr.UnknownPair, "registry.SetStatus", nil, "pair", pair.String())
	}
	if m.Status == Settled {
		return xerr.E(xerr.Validation, "registry.SetStatus", nil, "pair", pair.String(), "reason", "settled market is terminal")
	}
	m.Status = status
	return nil
}
