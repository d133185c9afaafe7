package cpamm

import (
	"testing"

	"github.com/driftline-labs/dexcore/pkg/types"
	"github.com/driftline-labs/dexcore/pkg/xerr"
)

func testPair() types.Pair { return types.NewPair("A", "B") }

// TestSwapKnownReserves swaps 1000 A into a (1_000_000 A, 50_000_000 B)
// pool at a 0.3% fee and checks the output against the formula worked by
// hand: effective_in = floor(1000*9970/10000) = 997, out =
// floor(50_000_000*997/(1_000_000+997)) = 49800.
func TestSwapKnownReserves(t *testing.T) {
	p := New(testPair(), 30) // 30 bps = 0.3%
	if _, err := p.AddLiquidity(1_000_000, 50_000_000); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}

	out, err := p.Swap("A", 1_000)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if out != 49800 {
		t.Fatalf("amount out = %d, want 49800", out)
	}

	a, b := p.Reserves()
	if a != 1_001_000 {
		t.Fatalf("reserveA = %d, want 1001000", a)
	}
	if b != 50_000_000-49800 {
		t.Fatalf("reserveB = %d, want %d", b, 50_000_000-49800)
	}
}

func TestSwapPreservesInvariant(t *testing.T) {
	p := New(testPair(), 30)
	if _, err := p.AddLiquidity(1_000_000, 2_000_000); err != nil {
		t.Fatalf("add: %v", err)
	}
	a0, b0 := p.Reserves()
	kBefore := a0 * b0

	if _, err := p.Swap("A", 10_000); err != nil {
		t.Fatalf("swap: %v", err)
	}
	a1, b1 := p.Reserves()
	if a1*b1 < kBefore {
		t.Fatalf("k decreased: before=%d after=%d", kBefore, a1*b1)
	}
}

func TestSwapEmptyPoolRejected(t *testing.T) {
	p := New(testPair(), 30)
	if _, err := p.Swap("A", 100); xerr.KindOf(err) != xerr.Empty {
		t.Fatalf("got %v, want Empty", err)
	}
}

func TestAddLiquidityRatioMismatch(t *testing.T) {
	p := New(testPair(), 30)
	if _, err := p.AddLiquidity(1_000_000, 1_000_000); err != nil {
		t.Fatalf("initial add: %v", err)
	}
	if _, err := p.AddLiquidity(1_000_000, 2_000_000); xerr.KindOf(err) != xerr.RatioMismatch {
		t.Fatalf("got %v, want RatioMismatch", err)
	}
}

// Round-trip law: add then remove
// equivalent liquidity returns the same amounts modulo rounding down.
func TestAddRemoveRoundTrip(t *testing.T) {
	p := New(testPair(), 30)
	shares, err := p.AddLiquidity(1_000_000, 2_000_000)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	outA, outB, err := p.RemoveLiquidity(shares)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if diff := int64(1_000_000) - int64(outA); diff < 0 || diff > 1 {
		t.Fatalf("outA round-trip loss = %d, want <= 1", diff)
	}
	if diff := int64(2_000_000) - int64(outB); diff < 0 || diff > 1 {
		t.Fatalf("outB round-trip loss = %d, want <= 1", diff)
	}
}

func TestRemoveLiquidityInsufficientShares(t *testing.T) {
	p := New(testPair(), 30)
	shares, err := p.AddLiquidity(1_000, 1_000)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, _, err := p.RemoveLiquidity(shares + 1); xerr.KindOf(err) != xerr.Insufficient {
		t.Fatalf("got %v, want Insufficient", err)
	}
}

func TestSpotPriceIsInformationalOnly(t *testing.T) {
	p := New(testPair(), 30)
	if _, err := p.AddLiquidity(1_000_000, 2_000_000); err != nil {
		t.Fatalf("add: %v", err)
	}
	price, err := p.SpotPrice("A")
	if err != nil {
		t.Fatalf("spot price: %v", err)
	}
	if price != 2.0 {
		t.Fatalf("spot price = %v, want 2.0", price)
	}
}
