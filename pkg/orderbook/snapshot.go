package orderbook

import (
	"github.com/driftline-labs/dexcore/pkg/types"
	"github.com/driftline-labs/dexcore/pkg/xerr"
)

// BookExport is a serializable snapshot of every resting order in a book,
// in price-time priority order per side. A persistence collaborator can
// checkpoint it and later replay it into a fresh book via Import.
type BookExport struct {
	Pair types.Pair    `json:"pair"`
	Bids []types.Order `json:"bids"`
	Asks []types.Order `json:"asks"`
}

// Export copies out all resting orders. Trade history, the batch, and the
// mempool are not part of the export; they belong to the event stream, not
// to the book's restorable state.
func (b *Book) Export() BookExport {
	b.mu.RLock()
	defer b.mu.RUnlock()

	exp := BookExport{Pair: b.pair}
	exp.Bids = exportSide(b.bids)
	exp.Asks = exportSide(b.asks)
	return exp
}

func exportSide(idx *priceLevelIndex) []types.Order {
	var out []types.Order
	idx.tree.Ascend(func(lv *level) bool {
		for e := lv.q.Front(); e != nil; e = e.Next() {
			out = append(out, *e.Value.(*types.Order))
		}
		return true
	})
	return out
}

// Import restores an export into an empty book. Orders are rested directly,
// without re-matching: a valid export was captured from a book whose sides
// did not cross, and replaying through Submit would emit spurious trades.
func (b *Book) Import(exp BookExport) error {
	if exp.Pair != b.pair {
		return xerr.E(xerr.Validation, "orderbook.Import", nil, "reason", "export pair does not match book", "export_pair", exp.Pair.String(), "book_pair", b.pair.String())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.byID) != 0 {
		return xerr.E(xerr.Validation, "orderbook.Import", nil, "reason", "book is not empty", "resting", len(b.byID))
	}

	for _, o := range append(append([]types.Order{}, exp.Bids...), exp.Asks...) {
		if o.Remaining == 0 {
			return xerr.E(xerr.Validation, "orderbook.Import", nil, "reason", "export contains a fully filled order", "order_id", o.ID)
		}
		if _, dup := b.byID[o.ID]; dup {
			return xerr.E(xerr.DuplicateID, "orderbook.Import", nil, "order_id", o.ID)
		}
		restored := o
		b.rest(&restored)
	}
	return nil
}
