package orderbook

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/driftline-labs/dexcore/pkg/types"
	"github.com/driftline-labs/dexcore/pkg/xerr"
)

func testPair() types.Pair {
	return types.NewPair("BTC", "USD")
}

func trader(n byte) common.Address {
	var a common.Address
	a[19] = n
	return a
}

func limitOrder(id uint64, side types.Side, price, qty uint64) *types.Order {
	return &types.Order{
		ID:        id,
		Trader:    trader(byte(id)),
		Pair:      testPair(),
		Side:      side,
		Kind:      types.Limit,
		Price:     price,
		Remaining: qty,
	}
}

// Two resting asks at the same price consumed in FIFO order by one larger
// taker.
func TestSimpleCross(t *testing.T) {
	b := New(testPair(), nil, Config{})

	if _, _, err := b.Submit(limitOrder(1, types.Sell, 100, 50)); err != nil {
		t.Fatalf("submit 1: %v", err)
	}
	if _, _, err := b.Submit(limitOrder(2, types.Sell, 100, 50)); err != nil {
		t.Fatalf("submit 2: %v", err)
	}

	trades, status, err := b.Submit(limitOrder(3, types.Buy, 100, 75))
	if err != nil {
		t.Fatalf("submit 3: %v", err)
	}
	if status != types.FullyFilled {
		t.Fatalf("status = %v, want FullyFilled", status)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	if trades[0].MakerID != 1 || trades[0].Qty != 50 || trades[0].Price != 100 {
		t.Fatalf("trade[0] = %+v", trades[0])
	}
	if trades[1].MakerID != 2 || trades[1].Qty != 25 || trades[1].Price != 100 {
		t.Fatalf("trade[1] = %+v", trades[1])
	}

	ask, ok := b.BestAsk()
	if !ok || ask != 100 {
		t.Fatalf("best ask = %v, %v; want 100, true", ask, ok)
	}
	if _, ok := b.BestBid(); ok {
		t.Fatal("expected no resting bid")
	}
	remaining, err := b.Lookup(2)
	if err != nil || remaining.Remaining != 25 {
		t.Fatalf("order 2 remaining = %+v, %v", remaining, err)
	}
}

// A better-priced later ask must fill before an earlier worse-priced one.
func TestPricePriorityDominatesTime(t *testing.T) {
	b := New(testPair(), nil, Config{})

	if _, _, err := b.Submit(limitOrder(1, types.Sell, 101, 10)); err != nil {
		t.Fatalf("submit A: %v", err)
	}
	if _, _, err := b.Submit(limitOrder(2, types.Sell, 100, 10)); err != nil {
		t.Fatalf("submit B: %v", err)
	}

	trades, _, err := b.Submit(limitOrder(3, types.Buy, 101, 10))
	if err != nil {
		t.Fatalf("submit buy: %v", err)
	}
	if len(trades) != 1 || trades[0].MakerID != 2 || trades[0].Price != 100 {
		t.Fatalf("trades = %+v, want one trade against maker 2 at 100", trades)
	}

	rest, err := b.Lookup(1)
	if err != nil || rest.Remaining != 10 {
		t.Fatalf("order A should remain fully resting, got %+v, %v", rest, err)
	}
}

// A market buy sweeps the asks and drops whatever it cannot fill.
func TestMarketOrderPartial(t *testing.T) {
	b := New(testPair(), nil, Config{})

	if _, _, err := b.Submit(limitOrder(1, types.Sell, 100, 5)); err != nil {
		t.Fatalf("submit 1: %v", err)
	}
	if _, _, err := b.Submit(limitOrder(2, types.Sell, 101, 5)); err != nil {
		t.Fatalf("submit 2: %v", err)
	}

	market := &types.Order{ID: 3, Trader: trader(3), Pair: testPair(), Side: types.Buy, Kind: types.Market, Remaining: 20}
	trades, status, err := b.Submit(market)
	if err != nil {
		t.Fatalf("submit market: %v", err)
	}
	if status != types.MarketUnfilledDropped {
		t.Fatalf("status = %v, want MarketUnfilledDropped", status)
	}
	if len(trades) != 2 || trades[0].Qty != 5 || trades[0].Price != 100 || trades[1].Qty != 5 || trades[1].Price != 101 {
		t.Fatalf("trades = %+v", trades)
	}
	if market.Remaining != 0 {
		t.Fatalf("market order residual = %d, want 0 (dropped)", market.Remaining)
	}
}

func TestCancelRestoresBookState(t *testing.T) {
	b := New(testPair(), nil, Config{})

	if _, _, err := b.Submit(limitOrder(1, types.Buy, 90, 10)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	before := b.Depth(0)

	if _, _, err := b.Submit(limitOrder(2, types.Buy, 80, 5)); err != nil {
		t.Fatalf("submit non-crossing: %v", err)
	}
	if err := b.Cancel(2); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	after := b.Depth(0)
	if len(before.Bids) != len(after.Bids) || before.Bids[0] != after.Bids[0] {
		t.Fatalf("book state diverged after submit+cancel round-trip: before=%+v after=%+v", before, after)
	}
	if _, err := b.Lookup(2); xerr.KindOf(err) != xerr.NotFound {
		t.Fatalf("expected order 2 gone after cancel, got %v", err)
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	b := New(testPair(), nil, Config{})
	if err := b.Cancel(999); xerr.KindOf(err) != xerr.NotFound {
		t.Fatalf("Cancel unknown = %v, want NotFound", err)
	}
}

func TestEmptyBookHasNoBestPrices(t *testing.T) {
	b := New(testPair(), nil, Config{})
	if _, ok := b.BestBid(); ok {
		t.Fatal("expected no best bid on empty book")
	}
	if _, ok := b.BestAsk(); ok {
		t.Fatal("expected no best ask on empty book")
	}
	d := b.Depth(10)
	if len(d.Bids) != 0 || len(d.Asks) != 0 {
		t.Fatalf("depth on empty book = %+v, want empty levels", d)
	}
}

func TestValidationRejectsBadOrders(t *testing.T) {
	b := New(testPair(), nil, Config{})

	cases := []struct {
		name string
		o    *types.Order
	}{
		{"zero quantity", limitOrder(1, types.Buy, 100, 0)},
		{"missing limit price", &types.Order{ID: 2, Trader: trader(2), Pair: testPair(), Side: types.Buy, Kind: types.Limit, Remaining: 1}},
		{"wrong pair", &types.Order{ID: 3, Trader: trader(3), Pair: types.NewPair("ETH", "USD"), Side: types.Buy, Kind: types.Limit, Price: 1, Remaining: 1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, _, err := b.Submit(c.o); xerr.KindOf(err) != xerr.Validation {
				t.Fatalf("got %v, want Validation", err)
			}
		})
	}
}

func TestDuplicateOrderID(t *testing.T) {
	b := New(testPair(), nil, Config{})
	if _, _, err := b.Submit(limitOrder(1, types.Buy, 100, 10)); err != nil {
		t.Fatalf("submit 1: %v", err)
	}
	if _, _, err := b.Submit(limitOrder(1, types.Sell, 100, 10)); xerr.KindOf(err) != xerr.DuplicateID {
		t.Fatalf("got %v, want DuplicateID", err)
	}
}

func TestFillAccountingInvariant(t *testing.T) {
	b := New(testPair(), nil, Config{})
	if _, _, err := b.Submit(limitOrder(1, types.Sell, 100, 30)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	taker := limitOrder(2, types.Buy, 100, 50)
	trades, _, err := b.Submit(taker)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var filled uint64
	for _, tr := range trades {
		filled += tr.Qty
	}
	if filled != taker.Original-taker.Remaining {
		t.Fatalf("filled=%d, original-remaining=%d", filled, taker.Original-taker.Remaining)
	}
}

func TestNotifierFiresAfterMutation(t *testing.T) {
	var gotSnaps []DepthSnapshot
	b := New(testPair(), nil, Config{Notifier: func(s DepthSnapshot) {
		gotSnaps = append(gotSnaps, s)
	}})

	if _, _, err := b.Submit(limitOrder(1, types.Buy, 100, 10)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(gotSnaps) != 1 {
		t.Fatalf("notifier fired %d times, want 1", len(gotSnaps))
	}
	if gotSnaps[0].BestBid == nil || *gotSnaps[0].BestBid != 100 {
		t.Fatalf("snapshot = %+v, want best bid 100", gotSnaps[0])
	}
}

type recordingSink struct {
	accepted  []types.Order
	emitted   []types.Trade
	cancelled []uint64
}

func (s *recordingSink) OrderAccepted(o types.Order) { s.accepted = append(s.accepted, o) }
func (s *recordingSink) TradeEmitted(t types.Trade)  { s.emitted = append(s.emitted, t) }
func (s *recordingSink) OrderCancelled(id uint64)    { s.cancelled = append(s.cancelled, id) }

func TestEventSinkReceivesStream(t *testing.T) {
	sink := &recordingSink{}
	b := New(testPair(), nil, Config{Events: sink})

	if _, _, err := b.Submit(limitOrder(1, types.Sell, 100, 10)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := b.Submit(limitOrder(2, types.Buy, 100, 10)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, _, err := b.Submit(limitOrder(3, types.Buy, 90, 5)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := b.Cancel(3); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if len(sink.accepted) != 3 {
		t.Fatalf("accepted = %d orders, want 3", len(sink.accepted))
	}
	if len(sink.emitted) != 1 || sink.emitted[0].MakerID != 1 || sink.emitted[0].TakerID != 2 {
		t.Fatalf("emitted = %+v, want one maker=1/taker=2 trade", sink.emitted)
	}
	if len(sink.cancelled) != 1 || sink.cancelled[0] != 3 {
		t.Fatalf("cancelled = %v, want [3]", sink.cancelled)
	}
}

func TestBatchCommitClearsBatch(t *testing.T) {
	b := New(testPair(), nil, Config{})
	if _, _, err := b.Submit(limitOrder(1, types.Buy, 100, 10)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	root1 := b.BatchCommit(nil)

	// A second commit with no intervening activity must differ from a
	// commit over a non-empty batch (the empty-batch sentinel).
	root2 := b.BatchCommit(nil)
	if root1 == root2 {
		t.Fatal("expected empty post-commit batch to produce the sentinel root, distinct from the first commit")
	}
}

func TestPriceLevelIndexPrunesEmptyLevels(t *testing.T) {
	idx := newPriceLevelIndex(true)
	lv := idx.getOrCreate(100)
	elem := lv.q.PushBack(&types.Order{ID: 1, Remaining: 1})
	lv.q.Remove(elem)
	idx.pruneIfEmpty(100)
	if idx.get(100) != nil {
		t.Fatal("expected empty level to be pruned")
	}
	if _, ok := idx.best(); ok {
		t.Fatal("expected no best price after pruning the only level")
	}
}
