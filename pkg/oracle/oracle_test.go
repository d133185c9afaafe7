package oracle

import (
	"testing"

	"github.com/driftline-labs/dexcore/pkg/types"
	"github.com/driftline-labs/dexcore/pkg/xerr"
)

func testPair() types.Pair { return types.NewPair("ETH", "USD") }

func TestMedianNoData(t *testing.T) {
	a := New(10)
	if _, err := a.Median(testPair()); xerr.KindOf(err) != xerr.NoData {
		t.Fatalf("got %v, want NoData", err)
	}
}

func TestMedianOddAndEvenCounts(t *testing.T) {
	a := New(10)
	pair := testPair()
	for i, p := range []float64{100, 102, 98} {
		a.Push(pair, Observation{Source: "s", Price: p, Timestamp: int64(i)})
	}
	med, err := a.Median(pair)
	if err != nil {
		t.Fatalf("median: %v", err)
	}
	if med != 100 {
		t.Fatalf("median of [100,102,98] = %v, want 100", med)
	}

	a.Push(pair, Observation{Source: "s", Price: 104, Timestamp: 3})
	med, err = a.Median(pair)
	if err != nil {
		t.Fatalf("median: %v", err)
	}
	// sorted: 98,100,102,104 -> (100+102)/2 = 101
	if med != 101 {
		t.Fatalf("median of 4 = %v, want 101", med)
	}
}

// An even-count median is the
// average of the two middle values, rounded down, not the raw float64
// average (which would be 101.5 here).
func TestMedianEvenCountRoundsDown(t *testing.T) {
	a := New(10)
	pair := testPair()
	a.Push(pair, Observation{Source: "s", Price: 100, Timestamp: 0})
	a.Push(pair, Observation{Source: "s", Price: 103, Timestamp: 1})

	med, err := a.Median(pair)
	if err != nil {
		t.Fatalf("median: %v", err)
	}
	if med != 101 {
		t.Fatalf("median of [100,103] = %v, want 101 (floor of 101.5)", med)
	}
}

// Manipulation resistance: adding a single observation strictly above all current ones
// cannot decrease the median. Only the high-outlier direction is checked here.
func TestMedianMonotonicWithOutlier(t *testing.T) {
	a := New(100)
	pair := testPair()
	for i, p := range []float64{10, 20, 30, 40, 50} {
		a.Push(pair, Observation{Source: "s", Price: p, Timestamp: int64(i)})
	}
	before, err := a.Median(pair)
	if err != nil {
		t.Fatalf("median: %v", err)
	}

	a.Push(pair, Observation{Source: "outlier", Price: 1_000_000, Timestamp: 5})
	afterHigh, err := a.Median(pair)
	if err != nil {
		t.Fatalf("median: %v", err)
	}
	if afterHigh < before {
		t.Fatalf("median decreased after a high outlier: before=%v after=%v", before, afterHigh)
	}
}

func TestRingEvictsOldestOnOverflow(t *testing.T) {
	a := New(3)
	pair := testPair()
	for i := 0; i < 5; i++ {
		a.Push(pair, Observation{Source: "s", Price: float64(i), Timestamp: int64(i)})
	}
	if got := a.Count(pair); got != 3 {
		t.Fatalf("count = %d, want 3 (capacity)", got)
	}
	med, err := a.Median(pair)
	if err != nil {
		t.Fatalf("median: %v", err)
	}
	// only prices 2,3,4 survive; median = 3
	if med != 3 {
		t.Fatalf("median after overflow = %v, want 3", med)
	}
}

func TestTWAPInsufficientData(t *testing.T) {
	a := New(10)
	pair := testPair()
	a.Push(pair, Observation{Source: "s", Price: 100, Timestamp: 0})
	if _, err := a.TWAP(pair, 60); xerr.KindOf(err) != xerr.InsufficientData {
		t.Fatalf("got %v, want InsufficientData", err)
	}
}

func TestTWAPWeightsByDuration(t *testing.T) {
	a := New(10)
	pair := testPair()
	a.Push(pair, Observation{Source: "s", Price: 100, Timestamp: 0})
	a.Push(pair, Observation{Source: "s", Price: 200, Timestamp: 10})
	a.Push(pair, Observation{Source: "s", Price: 100, Timestamp: 20})

	twap, err := a.TWAP(pair, 100)
	if err != nil {
		t.Fatalf("twap: %v", err)
	}
	// two equal-length segments, 100 then 200: average 150.
	if twap != 150 {
		t.Fatalf("twap = %v, want 150", twap)
	}
}

// Clipped weighting: an observation whose own timestamp precedes the window still
// contributes the partial overlap of its holding interval, rather than
// being dropped outright and starving the window down to a single point.
// obs at t=0 (held until t=50) and t=50; horizon=30 means the window is
// [20,50]; t=0's holding interval overlaps it for 30 seconds, t=50's
// holding interval has zero width (it's the last sample), so the TWAP is
// exactly the first price.
func TestTWAPClipsObservationBeforeWindow(t *testing.T) {
	a := New(10)
	pair := testPair()
	a.Push(pair, Observation{Source: "s", Price: 100, Timestamp: 0})
	a.Push(pair, Observation{Source: "s", Price: 200, Timestamp: 50})

	twap, err := a.TWAP(pair, 30)
	if err != nil {
		t.Fatalf("twap: %v", err)
	}
	if twap != 100 {
		t.Fatalf("twap = %v, want 100", twap)
	}
}
