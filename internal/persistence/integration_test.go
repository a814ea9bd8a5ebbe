package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"SynthLedger/internal/core"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/persistence"
	"SynthLedger/internal/testutil"
)

func TestEventLogWriteIsIdempotent(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := persistence.NewMigrator(db, "../../migrations").Up(ctx); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	w := persistence.NewEventLogWriter(db)
	row := persistence.EventRow{
		Sequence:       1,
		EventType:      "TokenDeposit",
		IdempotencyKey: "it-deposit-1",
		Payload:        []byte(`{"Amount":100}`),
		StateHash:      make([]byte, 32),
		PrevHash:       make([]byte, 32),
		Timestamp:      time.Now().UTC(),
		SourceSequence: 1,
	}

	if err := w.WriteEventBatch(ctx, db, []persistence.EventRow{row}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	// Same row again: the conflict target swallows it.
	if err := w.WriteEventBatch(ctx, db, []persistence.EventRow{row}); err != nil {
		t.Fatalf("duplicate write: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_log.events`).Scan(&count); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Errorf("event count: got %d, want 1", count)
	}

	checker := persistence.NewPostgresIdempotencyChecker(db)
	dup, err := checker.IsDuplicate("TokenDeposit", "it-deposit-1")
	if err != nil {
		t.Fatalf("IsDuplicate: %v", err)
	}
	if !dup {
		t.Error("expected written event to be reported duplicate")
	}
	dup, err = checker.IsDuplicate("TokenDeposit", "never-seen")
	if err != nil {
		t.Fatalf("IsDuplicate: %v", err)
	}
	if dup {
		t.Error("unseen key reported duplicate")
	}
}

func TestJournalWriteIsIdempotent(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := persistence.NewMigrator(db, "../../migrations").Up(ctx); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	w := persistence.NewEventLogWriter(db)
	user := uuid.New()
	row := persistence.JournalRow{
		JournalID:     uuid.New().String(),
		EventSequence: 1,
		JournalType:   "deposit",
		DebitAccount:  ledger.NewExternalAccountKey(ledger.SubTypeExternalMint).AccountPath(),
		CreditAccount: ledger.NewUserAccountKey(user, ledger.SubTypeWallet).AccountPath(),
		Amount:        100,
		Reference:     "it-deposit-1",
		CreatedAt:     time.Now().Unix(),
	}

	if err := w.WriteJournalBatch(ctx, db, []persistence.JournalRow{row}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := w.WriteJournalBatch(ctx, db, []persistence.JournalRow{row}); err != nil {
		t.Fatalf("duplicate write: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_log.journal`).Scan(&count); err != nil {
		t.Fatalf("count journals: %v", err)
	}
	if count != 1 {
		t.Errorf("journal count: got %d, want 1", count)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	testutil.RequireIntegration(t)
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := persistence.NewMigrator(db, "../../migrations").Up(ctx); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	user := uuid.New()
	snap := &core.SnapshotState{
		Sequence:  42,
		StateHash: [32]byte{1, 2, 3},
		Balances: map[ledger.AccountKey]int64{
			ledger.NewUserAccountKey(user, ledger.SubTypeWallet):     500,
			ledger.NewExternalAccountKey(ledger.SubTypeExternalMint): -500,
		},
		SequenceState: map[string]int64{"settlement": 7},
	}

	mgr := persistence.NewSnapshotManager(db, nil)
	if err := mgr.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}

	// Unverified snapshots are not restore candidates.
	loaded, err := mgr.LoadLatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if loaded != nil {
		t.Fatal("unverified snapshot should not load")
	}

	if err := mgr.MarkVerified(ctx, snap.Sequence); err != nil {
		t.Fatalf("mark verified: %v", err)
	}

	loaded, err = mgr.LoadLatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if loaded == nil {
		t.Fatal("verified snapshot did not load")
	}
	if loaded.Sequence != snap.Sequence {
		t.Errorf("sequence: got %d, want %d", loaded.Sequence, snap.Sequence)
	}
	if loaded.StateHash != snap.StateHash {
		t.Errorf("state hash: got %x, want %x", loaded.StateHash, snap.StateHash)
	}
	walletKey := ledger.NewUserAccountKey(user, ledger.SubTypeWallet)
	if got := loaded.Balances[walletKey]; got != 500 {
		t.Errorf("wallet balance: got %d, want 500", got)
	}
	if got := loaded.SequenceState["settlement"]; got != 7 {
		t.Errorf("settlement partition sequence: got %d, want 7", got)
	}
}
