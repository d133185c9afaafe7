package concentrated

import (
	"testing"

	"github.com/driftline-labs/dexcore/pkg/types"
	"github.com/driftline-labs/dexcore/pkg/xerr"
)

func testPair() types.Pair { return types.NewPair("A", "B") }

func TestAddLiquidityAtCreatesAndAccumulates(t *testing.T) {
	p := New(testPair())
	if err := p.AddLiquidityAt(100, 50); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := p.AddLiquidityAt(100, 25); err != nil {
		t.Fatalf("add again: %v", err)
	}
	if got := p.LiquidityAt(100); got != 75 {
		t.Fatalf("liquidity at 100 = %d, want 75", got)
	}
}

func TestLiquidityAtAbsentTickIsZero(t *testing.T) {
	p := New(testPair())
	if got := p.LiquidityAt(42); got != 0 {
		t.Fatalf("liquidity at absent tick = %d, want 0", got)
	}
}

func TestRemoveLiquidityAtInsufficient(t *testing.T) {
	p := New(testPair())
	if err := p.AddLiquidityAt(-5, 10); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := p.RemoveLiquidityAt(-5, 20); xerr.KindOf(err) != xerr.Insufficient {
		t.Fatalf("got %v, want Insufficient", err)
	}
}

func TestRemoveLiquidityAtDeletesWhenZero(t *testing.T) {
	p := New(testPair())
	if err := p.AddLiquidityAt(10, 30); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := p.RemoveLiquidityAt(10, 30); err != nil {
		t.Fatalf("remove: %v", err)
	}
	ticks := p.ActiveTicks()
	if len(ticks) != 0 {
		t.Fatalf("active ticks = %v, want empty after fully draining tick 10", ticks)
	}
}

func TestActiveTicksAscending(t *testing.T) {
	p := New(testPair())
	for _, tk := range []Tick{50, -20, 0, 30} {
		if err := p.AddLiquidityAt(tk, 1); err != nil {
			t.Fatalf("add %d: %v", tk, err)
		}
	}
	ticks := p.ActiveTicks()
	want := []Tick{-20, 0, 30, 50}
	if len(ticks) != len(want) {
		t.Fatalf("ticks = %v, want %v", ticks, want)
	}
	for i := range want {
		if ticks[i] != want[i] {
			t.Fatalf("ticks = %v, want %v", ticks, want)
		}
	}
}

// An absent tick holds zero
// liquidity (per LiquidityAt), so removing any positive amount fails
// Insufficient, the same Kind a present but under-funded tick would return.
func TestRemoveLiquidityAtUnknownTick(t *testing.T) {
	p := New(testPair())
	if err := p.RemoveLiquidityAt(7, 1); xerr.KindOf(err) != xerr.Insufficient {
		t.Fatalf("got %v, want Insufficient", err)
	}
}
