package projection

import (
	"sync"

	"github.com/google/uuid"
)

// SettlementHistoryEntry is one settled order from a user's point of
// view. Payout and interest are fixed-point token amounts.
type SettlementHistoryEntry struct {
	EventSequence   int64
	UserID          uuid.UUID
	MarketID        string
	OrderID         int64
	Outcome         string
	Price           int64
	ClosedShares    int64
	OpenedShares    int64
	Payout          int64
	Minted          int64
	Escrowed        int64
	InterestCharged int64
	SettledAt       int64
}

// SettlementHistoryProjection keeps recent settlements in memory for
// low-latency queries. The full history lives in Postgres and can be
// rebuilt from the event log. Written by the projection worker, read by
// the query path.
type SettlementHistoryProjection struct {
	mu      sync.RWMutex
	entries []SettlementHistoryEntry
	maxSize int
}

func NewSettlementHistoryProjection(maxSize int) *SettlementHistoryProjection {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &SettlementHistoryProjection{maxSize: maxSize}
}

// Add records a settlement, evicting the oldest entry when full.
func (p *SettlementHistoryProjection) Add(entry SettlementHistoryEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = append(p.entries, entry)
	if len(p.entries) > p.maxSize {
		p.entries = p.entries[1:]
	}
}

// QueryByUser returns the user's settlements, newest first.
func (p *SettlementHistoryProjection) QueryByUser(userID uuid.UUID, limit int) []SettlementHistoryEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]SettlementHistoryEntry, 0)
	for i := len(p.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if p.entries[i].UserID == userID {
			result = append(result, p.entries[i])
		}
	}
	return result
}

// QueryByMarket returns a market's settlements, newest first.
func (p *SettlementHistoryProjection) QueryByMarket(marketID string, limit int) []SettlementHistoryEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]SettlementHistoryEntry, 0)
	for i := len(p.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if p.entries[i].MarketID == marketID {
			result = append(result, p.entries[i])
		}
	}
	return result
}
