// Package market holds per-pair trading parameters (tick size, lot size,
// minimum notional, status) and validates incoming orders against them.
package market

import (
	"fmt"

	"github.com/driftline-labs/dexcore/pkg/types"
	"github.com/driftline-labs/dexcore/pkg/xerr"
)

// Status is the trading status of a pair.
type Status int8

const (
	Active Status = iota
	Paused
	Settling
	Settled
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Paused:
		return "paused"
	case Settling:
		return "settling"
	case Settled:
		return "settled"
	default:
		return "unknown"
	}
}

// Params configures a trading pair's matching rules.
type Params struct {
	TickSize     uint64 // minimum price increment
	LotSize      uint64 // minimum quantity increment
	MinNotional  uint64 // minimum order value, price*qty, in quote base units
	MinOrderSize uint64
	MaxOrderSize uint64
}

// Market is a registered, validated trading pair.
type Market struct {
	Pair   types.Pair
	Status Status
	Params Params
}

// New validates params and returns an Active market.
func New(pair types.Pair, params Params) (*Market, error) {
	m := &Market{Pair: pair, Status: Active, Params: params}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Market) Validate() error {
	if m.Pair.Base == m.Pair.Quote {
		return xerr.E(xerr.Validation, "market.Validate", nil, "pair", m.Pair.String(), "reason", "identical base and quote")
	}
	if m.Params.TickSize == 0 {
		return xerr.E(xerr.Validation, "market.Validate", nil, "reason", "tick size must be positive")
	}
	if m.Params.LotSize == 0 {
		return xerr.E(xerr.Validation, "market.Validate", nil, "reason", "lot size must be positive")
	}
	if m.Params.MinOrderSize > m.Params.MaxOrderSize && m.Params.MaxOrderSize != 0 {
		return xerr.E(xerr.Validation, "market.Validate", nil, "reason", "min order size exceeds max")
	}
	return nil
}

// ValidateOrder checks a proposed price/qty against this market's rules.
// price is ignored (may be zero) for market orders.
func (m *Market) ValidateOrder(kind types.Kind, price, qty uint64) error {
	if m.Status != Active {
		return xerr.E(xerr.Validation, "market.ValidateOrder", nil, "pair", m.Pair.String(), "reason", fmt.Sprintf("market not active (status: %s)", m.Status))
	}
	if qty == 0 {
		return xerr.E(xerr.Validation, "market.ValidateOrder", nil, "reason", "quantity must be positive")
	}
	if kind == types.Limit && price == 0 {
		return xerr.E(xerr.Validation, "market.ValidateOrder", nil, "reason", "limit order requires a price")
	}
	if kind == types.Limit && m.Params.TickSize > 0 && price%m.Params.TickSize != 0 {
		return xerr.E(xerr.Validation, "market.ValidateOrder", nil, "reason", "price not a multiple of tick size", "price", price, "tick", m.Params.TickSize)
	}
	if m.Params.LotSize > 0 && qty%m.Params.LotSize != 0 {
		return xerr.E(xerr.Validation, "market.ValidateOrder", nil, "reason", "quantity not a multiple of lot size", "qty", qty, "lot", m.Params.LotSize)
	}
	if m.Params.MinOrderSize > 0 && qty < m.Params.MinOrderSize {
		return xerr.E(xerr.Validation, "market.ValidateOrder", nil, "reason", "order size below minimum", "qty", qty, "min", m.Params.MinOrderSize)
	}
	if m.Params.MaxOrderSize > 0 && qty > m.Params.MaxOrderSize {
		return xerr.E(xerr.Validation, "market.ValidateOrder", nil, "reason", "order size above maximum", "qty", qty, "max", m.Params.MaxOrderSize)
	}
	if kind == types.Limit && m.Params.MinNotional > 0 {
		notional := price * qty
		if notional < m.Params.MinNotional {
			return xerr.E(xerr.Validation, "market.ValidateOrder", nil, "reason", "notional below minimum", "notional", notional, "min", m.Params.MinNotional)
		}
	}
	return nil
}
