package orderbook

import (
	"testing"

	"github.com/driftline-labs/dexcore/pkg/types"
	"github.com/driftline-labs/dexcore/pkg/xerr"
)

func TestExportImportRoundTrip(t *testing.T) {
	b := New(testPair(), nil, Config{})
	for _, o := range []*types.Order{
		limitOrder(1, types.Buy, 95, 10),
		limitOrder(2, types.Buy, 95, 20),
		limitOrder(3, types.Buy, 90, 5),
		limitOrder(4, types.Sell, 105, 7),
	} {
		if _, _, err := b.Submit(o); err != nil {
			t.Fatalf("submit %d: %v", o.ID, err)
		}
	}

	exp := b.Export()
	if len(exp.Bids) != 3 || len(exp.Asks) != 1 {
		t.Fatalf("export = %d bids, %d asks; want 3, 1", len(exp.Bids), len(exp.Asks))
	}
	// FIFO within a level survives the export.
	if exp.Bids[0].ID != 1 || exp.Bids[1].ID != 2 {
		t.Fatalf("bids out of order: %+v", exp.Bids)
	}

	restored := New(testPair(), nil, Config{})
	if err := restored.Import(exp); err != nil {
		t.Fatalf("import: %v", err)
	}

	before, after := b.Depth(0), restored.Depth(0)
	if len(before.Bids) != len(after.Bids) || len(before.Asks) != len(after.Asks) {
		t.Fatalf("depth diverged: %+v vs %+v", before, after)
	}
	for i := range before.Bids {
		if before.Bids[i] != after.Bids[i] {
			t.Fatalf("bid level %d diverged: %+v vs %+v", i, before.Bids[i], after.Bids[i])
		}
	}
	o, err := restored.Lookup(2)
	if err != nil || o.Remaining != 20 {
		t.Fatalf("restored lookup = %+v, %v", o, err)
	}

	// A restored resting order is cancellable like any other.
	if err := restored.Cancel(1); err != nil {
		t.Fatalf("cancel restored order: %v", err)
	}
}

func TestImportRejectsNonEmptyBook(t *testing.T) {
	b := New(testPair(), nil, Config{})
	if _, _, err := b.Submit(limitOrder(1, types.Buy, 100, 1)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := b.Import(b.Export()); xerr.KindOf(err) != xerr.Validation {
		t.Fatalf("got %v, want Validation", err)
	}
}

func TestImportRejectsPairMismatch(t *testing.T) {
	b := New(testPair(), nil, Config{})
	if err := b.Import(BookExport{Pair: types.NewPair("ETH", "USD")}); xerr.KindOf(err) != xerr.Validation {
		t.Fatalf("got %v, want Validation", err)
	}
}
