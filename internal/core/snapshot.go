package core

import (
	"SynthLedger/internal/engine"
	"SynthLedger/internal/escrow"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/market"
	"SynthLedger/internal/order"
	"SynthLedger/internal/position"
	"SynthLedger/internal/rates"
)

// SnapshotState holds the serializable in-memory state for restore.
// Mirrors persistence.SnapshotData but uses typed fields.
type SnapshotState struct {
	Sequence  int64
	StateHash [32]byte

	Balances  map[ledger.AccountKey]int64
	Positions []*position.Position
	Orders    []*order.Order
	Markets   []*market.Market

	RateDeployedAt int64
	RateEntries    []rates.Entry

	EscrowRecords []escrow.Record
	MintedToday   int64

	EngineVersion   int64
	SequenceState   map[string]int64
	IdempotencyKeys []string
}

// CreateSnapshotState captures the current in-memory state.
func (p *Processor) CreateSnapshotState() *SnapshotState {
	return &SnapshotState{
		Sequence:        p.sequence - 1, // last processed sequence
		StateHash:       p.hasher.GetPrevHash(),
		Balances:        p.tracker.Snapshot(),
		Positions:       p.book.All(),
		Orders:          p.manager.Gateway().Store().All(),
		Markets:         p.markets.All(),
		RateDeployedAt:  p.schedule.DeployedAt(),
		RateEntries:     p.schedule.Entries(),
		EscrowRecords:   p.limiter.Records(),
		MintedToday:     p.limiter.MintedToday(),
		EngineVersion:   p.manager.Version(),
		SequenceState:   p.sequenceValidator.Partitions(),
		IdempotencyKeys: p.idempotency.lru.Keys(),
	}
}

// RestoreFromSnapshot restores the core's in-memory state. On warm
// restart the caller loads the latest snapshot, restores, then replays
// events newer than snap.Sequence.
func (p *Processor) RestoreFromSnapshot(snap *SnapshotState) {
	p.sequence = snap.Sequence + 1 // next sequence to assign
	p.hasher.SetPrevHash(snap.StateHash)

	p.tracker.Restore(snap.Balances)

	for _, pos := range snap.Positions {
		p.book.Set(pos)
	}
	for _, o := range snap.Orders {
		p.manager.Gateway().Store().Put(o)
	}
	for _, m := range snap.Markets {
		p.markets.Restore(m)
	}

	p.schedule.Restore(snap.RateDeployedAt, snap.RateEntries)
	p.limiter.Restore(snap.EscrowRecords, snap.MintedToday)
	p.manager.RestoreVersion(snap.EngineVersion)

	for partition, nextSeq := range snap.SequenceState {
		p.sequenceValidator.SetExpectedSequence(partition, nextSeq)
	}

	p.idempotency.lru.WarmFromKeys(snap.IdempotencyKeys)

	// Restoring balances bypasses the journal path, so nothing to drain.
	p.tokens.TakeBatches()
}

// GetSequence returns the next global sequence number to assign.
func (p *Processor) GetSequence() int64 {
	return p.sequence
}

// GetStateHash returns the current state hash (chain tip).
func (p *Processor) GetStateHash() [32]byte {
	return p.hasher.GetPrevHash()
}

// Manager exposes the settlement manager for state inspection.
func (p *Processor) Manager() *engine.Manager {
	return p.manager
}

// Tracker exposes balances for state inspection.
func (p *Processor) Tracker() *ledger.BalanceTracker {
	return p.tracker
}

// MarketController exposes market state for state inspection.
func (p *Processor) MarketController() *market.Controller {
	return p.markets
}

// PositionBook exposes positions for state inspection.
func (p *Processor) PositionBook() *position.Book {
	return p.book
}
