package projection_test

import (
	"testing"

	"github.com/google/uuid"

	"SynthLedger/internal/projection"
)

func TestSettlementHistory_QueryByUser(t *testing.T) {
	p := projection.NewSettlementHistoryProjection(100)

	alice := uuid.New()
	bob := uuid.New()

	for i := int64(1); i <= 5; i++ {
		p.Add(projection.SettlementHistoryEntry{UserID: alice, MarketID: "GOLD-SYN", OrderID: i})
	}
	p.Add(projection.SettlementHistoryEntry{UserID: bob, MarketID: "GOLD-SYN", OrderID: 6})

	got := p.QueryByUser(alice, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	// Newest first.
	if got[0].OrderID != 5 || got[2].OrderID != 3 {
		t.Errorf("unexpected order: got %d..%d, want 5..3", got[0].OrderID, got[2].OrderID)
	}

	if n := len(p.QueryByUser(bob, 10)); n != 1 {
		t.Errorf("expected 1 entry for second user, got %d", n)
	}
}

func TestSettlementHistory_EvictsOldest(t *testing.T) {
	p := projection.NewSettlementHistoryProjection(3)
	user := uuid.New()

	for i := int64(1); i <= 5; i++ {
		p.Add(projection.SettlementHistoryEntry{UserID: user, MarketID: "OIL-SYN", OrderID: i})
	}

	got := p.QueryByUser(user, 10)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries after eviction, got %d", len(got))
	}
	if got[len(got)-1].OrderID != 3 {
		t.Errorf("oldest retained entry: got %d, want 3", got[len(got)-1].OrderID)
	}
}

func TestSettlementHistory_QueryByMarket(t *testing.T) {
	p := projection.NewSettlementHistoryProjection(100)
	user := uuid.New()

	p.Add(projection.SettlementHistoryEntry{UserID: user, MarketID: "GOLD-SYN", OrderID: 1})
	p.Add(projection.SettlementHistoryEntry{UserID: user, MarketID: "OIL-SYN", OrderID: 2})
	p.Add(projection.SettlementHistoryEntry{UserID: user, MarketID: "GOLD-SYN", OrderID: 3})

	got := p.QueryByMarket("GOLD-SYN", 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].OrderID != 3 {
		t.Errorf("newest first: got %d, want 3", got[0].OrderID)
	}
}
