// Package types holds the identifiers, units, and value objects shared
// across the matching engine, the AMM family, the router, and the oracle.
package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// TokenID is an opaque token symbol compared for equality only.
type TokenID string

// TraderID identifies the party on either side of an order. Reusing
// go-ethereum's address type keeps trader identifiers a fixed-width,
// comparable value instead of a free-form string.
type TraderID = common.Address

// Pair is an unordered pair of tokens, canonicalised so (A,B) and (B,A)
// index identically.
type Pair struct {
	Base  TokenID
	Quote TokenID
}

// NewPair canonicalises base/quote by lexical order.
func NewPair(a, b TokenID) Pair {
	if a <= b {
		return Pair{Base: a, Quote: b}
	}
	return Pair{Base: b, Quote: a}
}

func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.Base, p.Quote)
}

// Side is the direction of an order.
type Side int8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Kind distinguishes resting limit orders from fire-and-forget market orders.
type Kind int8

const (
	Limit Kind = iota
	Market
)

func (k Kind) String() string {
	if k == Limit {
		return "limit"
	}
	return "market"
}

// ResidualStatus reports what happened to the remaining quantity of an
// order after submit() returns.
type ResidualStatus int8

const (
	FullyFilled ResidualStatus = iota
	PartiallyFilledResting
	MarketUnfilledDropped
)

func (s ResidualStatus) String() string {
	switch s {
	case FullyFilled:
		return "fully_filled"
	case PartiallyFilledResting:
		return "partially_filled_resting"
	case MarketUnfilledDropped:
		return "market_unfilled_dropped"
	default:
		return "unknown"
	}
}

// Order is a single resting or transient order. Price and Qty are always
// expressed in the smallest base unit of their respective tokens; the
// matching engine never performs floating-point arithmetic on them.
type Order struct {
	ID        uint64
	Trader    TraderID
	Pair      Pair
	Side      Side
	Kind      Kind
	Price     uint64 // zero and unused for Kind == Market
	Remaining uint64
	Original  uint64
	CreatedAt int64 // monotonic nanoseconds, tie-broken by ID
}

// Trade is an immutable record of a single match between a resting maker
// and an arriving taker.
type Trade struct {
	ID        uint64
	MakerID   uint64
	TakerID   uint64
	Pair      Pair
	Price     uint64
	Qty       uint64
	Timestamp int64
}
