package router

import "github.com/driftline-labs/dexcore/pkg/xerr"

// EffectiveOutput computes the output amount for amountIn swapped through
// route left-to-right, clipping each hop to that hop's liquidity depth.
// Clipping at any hop downgrades the result to a
// LiquidityExceeded error: the quote is still returned (computed against
// the clipped amount actually reachable) so a caller can decide whether a
// partial fill is acceptable, but it must not be mistaken for an
// unconstrained quote.
func (r Route) EffectiveOutput(amountIn uint64) (amountOut uint64, err error) {
	amount := amountIn
	clipped := false
	for _, e := range r.Edges {
		if e.Liquidity > 0 && amount > e.Liquidity {
			amount = e.Liquidity
			clipped = true
		}
		amount = uint64(float64(amount) * e.Price)
	}
	if clipped {
		return amount, xerr.E(xerr.LiquidityExceeded, "router.EffectiveOutput", nil, "hops", len(r.Edges))
	}
	return amount, nil
}
