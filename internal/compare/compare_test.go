package compare

import (
	"testing"

	"github.com/rbarroso/mlwatch/internal/types"
)

func record(seller string, price float64) *types.MergedRecord {
	return &types.MergedRecord{
		ListingRecord: types.ListingRecord{SearchTerm: "term", Price: price},
		Detail:        types.DetailRecord{SellerName: seller},
	}
}

func TestAnnotateTieRule(t *testing.T) {
	own := NewOwnStoreSet([]string{"LojaPropria"})

	records := []*types.MergedRecord{
		record("LojaPropria", 100.00),
		record("Exact Tie Ltda", 100.00),
		record("Cheaper Corp", 99.99),
		record("Pricier SA", 100.01),
	}

	Annotate(records, own)

	if records[0].UndercutByCompetitor {
		t.Error("own-store row must never be flagged")
	}
	if records[1].UndercutByCompetitor {
		t.Error("tie at 100.00 must not be flagged as undercut")
	}
	if !records[2].UndercutByCompetitor {
		t.Error("99.99 against own min 100.00 must be flagged")
	}
	if records[3].UndercutByCompetitor {
		t.Error("100.01 against own min 100.00 must not be flagged")
	}
	for i, r := range records {
		if r.MinOwnPrice == nil || *r.MinOwnPrice != 100.00 {
			t.Errorf("record %d: min own price = %v, want 100.00", i, r.MinOwnPrice)
		}
	}
}

func TestAnnotateEmptyOwnSet(t *testing.T) {
	records := []*types.MergedRecord{
		record("A", 10),
		record("B", 9999),
	}

	Annotate(records, NewOwnStoreSet(nil))

	for i, r := range records {
		if r.UndercutByCompetitor || r.OwnStore || r.MinOwnPrice != nil {
			t.Errorf("record %d annotated despite empty own-store set", i)
		}
	}
}

func TestAnnotateMinOverMultipleOwnRows(t *testing.T) {
	own := NewOwnStoreSet([]string{"LojaPropria", "Filial"})
	records := []*types.MergedRecord{
		record("LojaPropria", 120),
		record("Filial", 90),
		record("Comp Acima", 100),
		record("Comp Abaixo", 85),
	}

	Annotate(records, own)

	if records[2].UndercutByCompetitor {
		t.Error("100 is above the own min of 90, must not be flagged")
	}
	if !records[3].UndercutByCompetitor {
		t.Error("85 is below the own min of 90, must be flagged")
	}
}

func TestNormalizedMatching(t *testing.T) {
	own := NewOwnStoreSet([]string{"  Loja Propria  "})

	if !own.Contains("loja propria") {
		t.Error("matching must be case-insensitive")
	}
	if !own.Contains(" LOJA PROPRIA ") {
		t.Error("matching must trim whitespace")
	}
	if own.Contains("loja") {
		t.Error("partial names must not match")
	}
}

func TestSellerHintUsedWhenDetailMissing(t *testing.T) {
	own := NewOwnStoreSet([]string{"HintStore"})

	r := &types.MergedRecord{
		ListingRecord: types.ListingRecord{Price: 50, SellerHint: "HintStore"},
	}
	Annotate([]*types.MergedRecord{r}, own)

	if !r.OwnStore {
		t.Error("seller hint must back the match when no detail seller exists")
	}
}
