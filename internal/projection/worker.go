package projection

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"SynthLedger/internal/core"
	"SynthLedger/internal/engine"
	"SynthLedger/internal/event"
)

// Worker updates projection tables from processed events. The core
// sends on the projection channel with a NON-blocking send: if this
// worker falls behind, events are dropped and the projections are
// rebuilt from the event log.
type Worker struct {
	db        *sql.DB
	inputChan <-chan core.CoreOutput
	history   *SettlementHistoryProjection
	lastSeq   int64
}

func NewWorker(db *sql.DB, inputChan <-chan core.CoreOutput, history *SettlementHistoryProjection) *Worker {
	return &Worker{
		db:        db,
		inputChan: inputChan,
		history:   history,
	}
}

// Run blocks until ctx is cancelled or the input channel closes.
// Outputs at or below the stored watermark are skipped, so balance
// increments are not double-applied when the core replays the log.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.loadWatermark(ctx); err != nil {
		log.Printf("WARN: load projection watermark: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case output, ok := <-w.inputChan:
			if !ok {
				return nil
			}

			if output.Envelope.Sequence <= w.lastSeq {
				continue
			}

			if err := w.processOutput(ctx, output); err != nil {
				// Projections are eventually consistent and rebuildable,
				// so a failed update is logged, not fatal.
				log.Printf("WARN: projection update failed seq=%d: %v",
					output.Envelope.Sequence, err)
			}

			w.lastSeq = output.Envelope.Sequence
		}
	}
}

func (w *Worker) loadWatermark(ctx context.Context) error {
	err := w.db.QueryRowContext(ctx, `
		SELECT last_sequence FROM projections.watermark WHERE worker_id = 'main'
	`).Scan(&w.lastSeq)
	if err == sql.ErrNoRows {
		return nil
	}
	return err
}

// settledOrder mirrors the settle payload written by the core.
type settledOrder struct {
	Event  *event.OrderSettle `json:"event"`
	Result *engine.Result     `json:"result"`
}

func (w *Worker) processOutput(ctx context.Context, output core.CoreOutput) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seq := output.Envelope.Sequence

	for _, batch := range output.Batches {
		for _, j := range batch.Journals {
			if err := w.updateBalance(ctx, tx, j.Debit.AccountPath(), -j.Amount, seq); err != nil {
				return fmt.Errorf("balance projection: %w", err)
			}
			if err := w.updateBalance(ctx, tx, j.Credit.AccountPath(), j.Amount, seq); err != nil {
				return fmt.Errorf("balance projection: %w", err)
			}
		}
	}

	if output.Envelope.EventType == event.EventTypeOrderSettle {
		if err := w.recordSettlement(ctx, tx, output); err != nil {
			return fmt.Errorf("settlement projection: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
	`, seq); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	return tx.Commit()
}

func (w *Worker) updateBalance(ctx context.Context, tx *sql.Tx, accountPath string, delta, seq int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, balance, last_sequence)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_path)
		DO UPDATE SET balance = projections.balances.balance + $2, last_sequence = $3
	`, accountPath, delta, seq)
	return err
}

func (w *Worker) recordSettlement(ctx context.Context, tx *sql.Tx, output core.CoreOutput) error {
	var payload settledOrder
	if err := json.Unmarshal(output.Envelope.Payload, &payload); err != nil {
		return fmt.Errorf("decode settle payload: %w", err)
	}
	if payload.Event == nil || payload.Result == nil {
		return fmt.Errorf("settle payload missing event or result")
	}

	res := payload.Result
	entry := SettlementHistoryEntry{
		EventSequence:   output.Envelope.Sequence,
		UserID:          res.Position.User,
		MarketID:        res.Position.Market,
		OrderID:         res.OrderID,
		Outcome:         res.Outcome.String(),
		Price:           payload.Event.Price,
		ClosedShares:    res.ClosedShares,
		OpenedShares:    res.OpenedShares,
		Payout:          res.Payout,
		Minted:          res.Minted,
		Escrowed:        res.Escrowed,
		InterestCharged: res.InterestCharged,
		SettledAt:       payload.Event.PositionTime,
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.settlement_history
			(event_sequence, user_id, market_id, order_id, outcome, price,
			 closed_shares, opened_shares, payout, minted, escrowed, interest_charged, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (event_sequence) DO NOTHING
	`, output.Envelope.Sequence, entry.UserID, entry.MarketID, entry.OrderID,
		entry.Outcome, entry.Price, entry.ClosedShares, entry.OpenedShares,
		entry.Payout, entry.Minted, entry.Escrowed, entry.InterestCharged,
		entry.SettledAt); err != nil {
		return err
	}

	if w.history != nil {
		w.history.Add(entry)
	}

	return nil
}

// Rebuild truncates and rebuilds the projection tables from the event
// log. Used after drops or when projections have diverged.
func Rebuild(ctx context.Context, db *sql.DB) error {
	truncateStatements := []string{
		`TRUNCATE projections.balances`,
		`TRUNCATE projections.settlement_history`,
		`DELETE FROM projections.watermark WHERE worker_id = 'main'`,
	}

	for _, stmt := range truncateStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate failed: %w", err)
		}
	}

	// Credits add, debits subtract. Two passes over the journal.
	if _, err := db.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, balance, last_sequence)
		SELECT credit_account, SUM(amount), MAX(event_sequence)
		FROM ledger_log.journal
		GROUP BY credit_account
	`); err != nil {
		return fmt.Errorf("rebuild credit balances: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, balance, last_sequence)
		SELECT debit_account, -SUM(amount), MAX(event_sequence)
		FROM ledger_log.journal
		GROUP BY debit_account
		ON CONFLICT (account_path) DO UPDATE
			SET balance = projections.balances.balance + EXCLUDED.balance,
			    last_sequence = GREATEST(projections.balances.last_sequence, EXCLUDED.last_sequence)
	`); err != nil {
		return fmt.Errorf("rebuild debit balances: %w", err)
	}

	log.Println("INFO: projection rebuild complete")
	return nil
}
