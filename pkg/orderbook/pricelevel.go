package orderbook

import (
	"container/list"

	"github.com/driftline-labs/dexcore/pkg/types"
	"github.com/google/btree"
)

// level is one price's FIFO queue of resting orders. Using container/list
// gives O(1) push-back and O(1) pop-front, so a fill against the head of a
// level never touches the rest of the queue.
type level struct {
	price uint64
	q     *list.List // of *types.Order
}

// priceLevelIndex is a balanced ordered map from price to FIFO queue,
// backed by google/btree. A heap-of-prices would only offer O(log n)
// insert at the cost of an O(n) removal scan; a btree gives O(log n)
// insert, remove, and best-price lookup uniformly, which cancellation
// needs.
type priceLevelIndex struct {
	tree *btree.BTreeG[*level]
	desc bool // true for bids (best = highest price), false for asks
}

func newPriceLevelIndex(desc bool) *priceLevelIndex {
	less := func(a, b *level) bool { return a.price < b.price }
	if desc {
		less = func(a, b *level) bool { return a.price > b.price }
	}
	return &priceLevelIndex{tree: btree.NewG(32, less), desc: desc}
}

// getOrCreate returns the level at price, creating an empty one if absent.
func (idx *priceLevelIndex) getOrCreate(price uint64) *level {
	key := &level{price: price}
	if existing, ok := idx.tree.Get(key); ok {
		return existing
	}
	key.q = list.New()
	idx.tree.ReplaceOrInsert(key)
	return key
}

// get returns the level at price, or nil if absent.
func (idx *priceLevelIndex) get(price uint64) *level {
	existing, ok := idx.tree.Get(&level{price: price})
	if !ok {
		return nil
	}
	return existing
}

// pruneIfEmpty removes the level at price if its queue is now empty, so
// best-price lookups never observe a phantom level.
func (idx *priceLevelIndex) pruneIfEmpty(price uint64) {
	lv := idx.get(price)
	if lv != nil && lv.q.Len() == 0 {
		idx.tree.Delete(&level{price: price})
	}
}

// best returns the best (highest bid / lowest ask) price, and whether one
// exists.
func (idx *priceLevelIndex) best() (uint64, bool) {
	top, ok := idx.tree.Min()
	if !ok {
		return 0, false
	}
	return top.price, true
}

func (idx *priceLevelIndex) len() int {
	return idx.tree.Len()
}

// snapshot returns up to n levels from the best price outward, as
// (price, aggregate quantity) pairs.
func (idx *priceLevelIndex) snapshot(n int) []DepthLevel {
	out := make([]DepthLevel, 0, min(n, idx.tree.Len()))
	idx.tree.Ascend(func(lv *level) bool {
		if len(out) >= n {
			return false
		}
		var qty uint64
		for e := lv.q.Front(); e != nil; e = e.Next() {
			qty += e.Value.(*types.Order).Remaining
		}
		out = append(out, DepthLevel{Price: lv.price, Qty: qty})
		return true
	})
	return out
}

// DepthLevel is one aggregated price level in a depth snapshot.
type DepthLevel struct {
	Price uint64
	Qty   uint64
}
