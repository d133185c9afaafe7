// Package orderbook implements a price-time-priority limit order book:
// price-level indexing, matching, trade emission, per-order and per-trader
// indexes, depth snapshots, and batch Merkle commitments.
package orderbook

import (
	"container/list"
	"encoding/json"
	"math"
	"sync"

	"github.com/driftline-labs/dexcore/pkg/clock"
	"github.com/driftline-labs/dexcore/pkg/market"
	"github.com/driftline-labs/dexcore/pkg/mempool"
	"github.com/driftline-labs/dexcore/pkg/merkle"
	"github.com/driftline-labs/dexcore/pkg/types"
	"github.com/driftline-labs/dexcore/pkg/xerr"
)

// DepthSnapshot is the post-mutation state handed to the depth-change
// notifier and returned by Depth.
type DepthSnapshot struct {
	Pair      types.Pair
	Bids      []DepthLevel
	Asks      []DepthLevel
	BestBid   *uint64
	BestAsk   *uint64
	Timestamp int64 // Unix seconds
}

// Notifier is invoked exactly once per successful mutating operation, after
// the critical section has released. Subscribers therefore cannot re-enter
// the book and deadlock.
type Notifier func(DepthSnapshot)

// EventSink receives the book's append-only event stream, for a persistence
// collaborator to consume. Calls happen after the critical section releases,
// in the order the events occurred; the book never reads persistence back
// on the hot path.
type EventSink interface {
	OrderAccepted(o types.Order)
	TradeEmitted(t types.Trade)
	OrderCancelled(id uint64)
}

// orderRef locates a resting order for O(log n) cancellation.
type orderRef struct {
	order *types.Order
	side  types.Side
	lv    *level
	elem  *list.Element
}

// Book is a single trading pair's order book. Each Book owns its state
// behind a single RWMutex critical section; concurrent readers use RLock,
// mutators use Lock.
type Book struct {
	mu sync.RWMutex

	pair   types.Pair
	mkt    *market.Market
	clk    clock.Clock
	depthN int
	notify Notifier
	events EventSink

	bids *priceLevelIndex
	asks *priceLevelIndex

	byID     map[uint64]*orderRef
	byTrader map[types.TraderID]map[uint64]struct{}

	tradesByOrder  map[uint64][]types.Trade
	tradesByTrader map[types.TraderID][]types.Trade

	nextTradeID   uint64
	lastTradeAt   int64
	tradesMatched uint64

	batch *list.List // of []byte, appendable payloads awaiting batchCommit

	Mempool *mempool.Mempool
}

// Config bundles the construction-time parameters of a Book.
type Config struct {
	Clock    clock.Clock
	DepthN   int // levels per side returned/broadcast by Depth; 0 = unbounded
	Notifier Notifier
	Events   EventSink
}

// New constructs an empty book for pair under mkt's validation rules.
func New(pair types.Pair, mkt *market.Market, cfg Config) *Book {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewRealClock()
	}
	return &Book{
		pair:           pair,
		mkt:            mkt,
		clk:            cfg.Clock,
		depthN:         cfg.DepthN,
		notify:         cfg.Notifier,
		events:         cfg.Events,
		bids:           newPriceLevelIndex(true),
		asks:           newPriceLevelIndex(false),
		byID:           make(map[uint64]*orderRef),
		byTrader:       make(map[types.TraderID]map[uint64]struct{}),
		tradesByOrder:  make(map[uint64][]types.Trade),
		tradesByTrader: make(map[types.TraderID][]types.Trade),
		batch:          list.New(),
		Mempool:        mempool.New(),
	}
}

func (b *Book) validate(o *types.Order) error {
	if o.Pair != b.pair {
		return xerr.E(xerr.Validation, "orderbook.Submit", nil, "reason", "order pair does not match book", "order_pair", o.Pair.String(), "book_pair", b.pair.String())
	}
	if o.Pair.Base == o.Pair.Quote {
		return xerr.E(xerr.Validation, "orderbook.Submit", nil, "reason", "base and quote token must differ")
	}
	if o.Remaining == 0 {
		return xerr.E(xerr.Validation, "orderbook.Submit", nil, "reason", "quantity must be positive")
	}
	if o.Kind == types.Limit && o.Price == 0 {
		return xerr.E(xerr.Validation, "orderbook.Submit", nil, "reason", "limit order requires a price")
	}
	if o.Kind == types.Limit && o.Price > 0 && o.Remaining > math.MaxUint64/o.Price {
		return xerr.E(xerr.Validation, "orderbook.Submit", nil, "reason", "price*quantity overflows")
	}
	if _, exists := b.byID[o.ID]; exists {
		return xerr.E(xerr.DuplicateID, "orderbook.Submit", nil, "order_id", o.ID)
	}
	if b.mkt != nil {
		if err := b.mkt.ValidateOrder(o.Kind, o.Price, o.Remaining); err != nil {
			return err
		}
	}
	return nil
}

// Submit accepts a new order, matches it under price-time priority, and
// returns the trades it produced plus its residual status. Execution price
// is always the maker's resting price; a non-crossing limit residual rests,
// a market residual is dropped.
func (b *Book) Submit(o *types.Order) ([]types.Trade, types.ResidualStatus, error) {
	b.mu.Lock()

	if err := b.validate(o); err != nil {
		b.mu.Unlock()
		return nil, 0, err
	}

	o.Original = o.Remaining
	if o.CreatedAt == 0 {
		o.CreatedAt = b.clk.MonotonicNow()
	}

	var trades []types.Trade
	var makerSide *priceLevelIndex
	if o.Side == types.Buy {
		makerSide = b.asks
	} else {
		makerSide = b.bids
	}

	for o.Remaining > 0 {
		bestPrice, ok := makerSide.best()
		if !ok {
			break
		}
		if o.Kind == types.Limit {
			if o.Side == types.Buy && bestPrice > o.Price {
				break
			}
			if o.Side == types.Sell && bestPrice < o.Price {
				break
			}
		}
		lv := makerSide.get(bestPrice)
		if lv == nil || lv.q.Len() == 0 {
			makerSide.pruneIfEmpty(bestPrice)
			continue
		}

		front := lv.q.Front()
		maker := front.Value.(*types.Order)

		qty := maker.Remaining
		if o.Remaining < qty {
			qty = o.Remaining
		}

		maker.Remaining -= qty
		o.Remaining -= qty

		b.nextTradeID++
		trade := types.Trade{
			ID:        b.nextTradeID,
			MakerID:   maker.ID,
			TakerID:   o.ID,
			Pair:      b.pair,
			Price:     bestPrice,
			Qty:       qty,
			Timestamp: o.CreatedAt,
		}
		trades = append(trades, trade)
		b.lastTradeAt = trade.Timestamp
		b.tradesMatched++
		b.recordTrade(trade, maker.Trader, o.Trader)
		b.appendBatchLocked(trade)

		if maker.Remaining == 0 {
			lv.q.Remove(front)
			delete(b.byID, maker.ID)
			b.removeFromTraderIndex(maker)
			makerSide.pruneIfEmpty(bestPrice)
		}
	}

	var status types.ResidualStatus
	switch {
	case o.Remaining == 0:
		status = types.FullyFilled
	case o.Kind == types.Market:
		o.Remaining = 0 // market orders never rest; unfilled residual is dropped
		status = types.MarketUnfilledDropped
	default:
		b.rest(o)
		status = types.PartiallyFilledResting
	}

	b.appendBatchLocked(*o)
	snap := b.snapshotLocked()
	accepted := *o
	b.mu.Unlock()

	if b.events != nil {
		b.events.OrderAccepted(accepted)
		for _, t := range trades {
			b.events.TradeEmitted(t)
		}
	}
	b.fireNotify(snap)
	return trades, status, nil
}

func (b *Book) rest(o *types.Order) {
	var idx *priceLevelIndex
	if o.Side == types.Buy {
		idx = b.bids
	} else {
		idx = b.asks
	}
	lv := idx.getOrCreate(o.Price)
	elem := lv.q.PushBack(o)
	b.byID[o.ID] = &orderRef{order: o, side: o.Side, lv: lv, elem: elem}
	b.addToTraderIndex(o)
}

func (b *Book) addToTraderIndex(o *types.Order) {
	set, ok := b.byTrader[o.Trader]
	if !ok {
		set = make(map[uint64]struct{})
		b.byTrader[o.Trader] = set
	}
	set[o.ID] = struct{}{}
}

func (b *Book) removeFromTraderIndex(o *types.Order) {
	if set, ok := b.byTrader[o.Trader]; ok {
		delete(set, o.ID)
		if len(set) == 0 {
			delete(b.byTrader, o.Trader)
		}
	}
}

func (b *Book) recordTrade(t types.Trade, maker, taker types.TraderID) {
	b.tradesByOrder[t.MakerID] = append(b.tradesByOrder[t.MakerID], t)
	b.tradesByOrder[t.TakerID] = append(b.tradesByOrder[t.TakerID], t)
	b.tradesByTrader[maker] = append(b.tradesByTrader[maker], t)
	if taker != maker {
		b.tradesByTrader[taker] = append(b.tradesByTrader[taker], t)
	}
}

// Cancel removes a resting order from all indexes.
func (b *Book) Cancel(id uint64) error {
	b.mu.Lock()

	ref, ok := b.byID[id]
	if !ok {
		b.mu.Unlock()
		return xerr.E(xerr.NotFound, "orderbook.Cancel", nil, "order_id", id)
	}

	ref.lv.q.Remove(ref.elem)
	delete(b.byID, id)
	b.removeFromTraderIndex(ref.order)

	var idx *priceLevelIndex
	if ref.side == types.Buy {
		idx = b.bids
	} else {
		idx = b.asks
	}
	idx.pruneIfEmpty(ref.lv.price)

	snap := b.snapshotLocked()
	b.mu.Unlock()

	if b.events != nil {
		b.events.OrderCancelled(id)
	}
	b.fireNotify(snap)
	return nil
}

// Lookup returns a copy of the order's current resting state.
func (b *Book) Lookup(id uint64) (types.Order, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ref, ok := b.byID[id]
	if !ok {
		return types.Order{}, xerr.E(xerr.NotFound, "orderbook.Lookup", nil, "order_id", id)
	}
	return *ref.order, nil
}

func (b *Book) BestBid() (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.best()
}

func (b *Book) BestAsk() (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.asks.best()
}

// Depth returns the top-n levels per side plus best bid/ask and a
// wall-clock timestamp.
func (b *Book) Depth(n int) DepthSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLockedN(n)
}

func (b *Book) snapshotLocked() DepthSnapshot {
	return b.snapshotLockedN(b.depthN)
}

func (b *Book) snapshotLockedN(n int) DepthSnapshot {
	snap := DepthSnapshot{
		Pair:      b.pair,
		Bids:      b.bids.snapshot(effectiveN(n)),
		Asks:      b.asks.snapshot(effectiveN(n)),
		Timestamp: b.clk.WallNow(),
	}
	if p, ok := b.bids.best(); ok {
		snap.BestBid = &p
	}
	if p, ok := b.asks.best(); ok {
		snap.BestAsk = &p
	}
	return snap
}

func effectiveN(n int) int {
	if n <= 0 {
		return math.MaxInt32
	}
	return n
}

func (b *Book) fireNotify(snap DepthSnapshot) {
	if b.notify != nil {
		b.notify(snap)
	}
}

// TradesMatched returns the cumulative count of trades this book has
// emitted.
func (b *Book) TradesMatched() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.tradesMatched
}

// TradesOfOrder returns the chronologically ordered trades involving id,
// whether id was the maker or the taker.
func (b *Book) TradesOfOrder(id uint64) []types.Trade {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]types.Trade, len(b.tradesByOrder[id]))
	copy(out, b.tradesByOrder[id])
	return out
}

// TradesOfTrader returns the chronologically ordered trades where trader
// was either the maker's or taker's owner.
func (b *Book) TradesOfTrader(trader types.TraderID) []types.Trade {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]types.Trade, len(b.tradesByTrader[trader]))
	copy(out, b.tradesByTrader[trader])
	return out
}

func (b *Book) appendBatchLocked(payload any) {
	enc, err := json.Marshal(payload)
	if err != nil {
		return
	}
	b.batch.PushBack(enc)
}

// BatchCommit computes a Merkle root over the accumulated batch and clears
// it.
func (b *Book) BatchCommit(hash merkle.HashFunc) [32]byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	payloads := make([][]byte, 0, b.batch.Len())
	for e := b.batch.Front(); e != nil; e = e.Next() {
		payloads = append(payloads, e.Value.([]byte))
	}
	b.batch.Init()

	tree := merkle.Build(payloads, hash)
	return tree.Root()
}
