package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"SynthLedger/internal/projection"
)

// Service provides read-only access to the projection tables and the
// event log, fronted by the in-memory settlement ring for hot first
// pages. Writes go through the event pipeline only; this layer never
// touches core state.
type Service struct {
	db      *sql.DB
	history *projection.SettlementHistoryProjection
}

func NewService(db *sql.DB, history *projection.SettlementHistoryProjection) *Service {
	return &Service{db: db, history: history}
}

// GetBalance returns a user's wallet and held balances.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*BalanceResponse, error) {
	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	wallet, err := s.getProjectedBalance(ctx, fmt.Sprintf("user:%s:wallet", userID))
	if err != nil {
		return nil, err
	}

	held, err := s.getProjectedBalance(ctx, fmt.Sprintf("user:%s:order_hold", userID))
	if err != nil {
		return nil, err
	}

	return &BalanceResponse{
		UserID:        userID,
		WalletBalance: wallet,
		HeldBalance:   held,
		TotalBalance:  wallet + held,
		AsOfSequence:  asOfSeq,
	}, nil
}

// GetSettlementHistory returns a user's settlements, newest first, with
// cursor pagination on the event sequence.
func (s *Service) GetSettlementHistory(
	ctx context.Context,
	userID uuid.UUID,
	marketID *string,
	limit int,
	beforeSequence *int64,
) ([]SettlementHistoryResponse, error) {
	if marketID == nil && beforeSequence == nil {
		if cached, ok := s.cachedSettlements(userID, limit); ok {
			return cached, nil
		}
	}

	asOfSeq, err := s.getWatermark(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT event_sequence, market_id, order_id, outcome, price,
		       closed_shares, opened_shares, payout, minted, escrowed,
		       interest_charged, settled_at
		FROM projections.settlement_history
		WHERE user_id = $1
	`
	args := []interface{}{userID}
	argIdx := 2

	if marketID != nil {
		query += fmt.Sprintf(" AND market_id = $%d", argIdx)
		args = append(args, *marketID)
		argIdx++
	}

	if beforeSequence != nil {
		query += fmt.Sprintf(" AND event_sequence < $%d", argIdx)
		args = append(args, *beforeSequence)
		argIdx++
	}

	query += " ORDER BY event_sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []SettlementHistoryResponse
	for rows.Next() {
		var h SettlementHistoryResponse
		h.UserID = userID
		h.AsOfSequence = asOfSeq
		if err := rows.Scan(
			&h.Sequence, &h.MarketID, &h.OrderID, &h.Outcome, &h.Price,
			&h.ClosedShares, &h.OpenedShares, &h.Payout, &h.Minted,
			&h.Escrowed, &h.InterestCharged, &h.SettledAt,
		); err != nil {
			return nil, err
		}
		history = append(history, h)
	}

	return history, rows.Err()
}

// cachedSettlements serves a first page from the in-memory ring. Only a
// full page is trusted: a short ring result cannot be told apart from a
// cold ring after restart, so anything less falls through to Postgres.
func (s *Service) cachedSettlements(userID uuid.UUID, limit int) ([]SettlementHistoryResponse, bool) {
	if s.history == nil {
		return nil, false
	}

	entries := s.history.QueryByUser(userID, limit)
	if len(entries) < limit {
		return nil, false
	}

	asOf := entries[0].EventSequence
	out := make([]SettlementHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, SettlementHistoryResponse{
			UserID:          e.UserID,
			MarketID:        e.MarketID,
			OrderID:         e.OrderID,
			Outcome:         e.Outcome,
			Price:           e.Price,
			ClosedShares:    e.ClosedShares,
			OpenedShares:    e.OpenedShares,
			Payout:          e.Payout,
			Minted:          e.Minted,
			Escrowed:        e.Escrowed,
			InterestCharged: e.InterestCharged,
			SettledAt:       e.SettledAt,
			Sequence:        e.EventSequence,
			AsOfSequence:    asOf,
		})
	}
	return out, true
}

// GetJournalHistory returns journal entries touching any of the user's
// accounts, newest first.
func (s *Service) GetJournalHistory(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
	beforeSequence *int64,
) ([]JournalHistoryEntry, error) {
	accountPrefix := fmt.Sprintf("user:%s:%%", userID)

	query := `
		SELECT journal_id, event_sequence, journal_type,
		       debit_account, credit_account, amount, reference, created_at
		FROM ledger_log.journal
		WHERE (debit_account LIKE $1 OR credit_account LIKE $1)
	`
	args := []interface{}{accountPrefix}
	argIdx := 2

	if beforeSequence != nil {
		query += fmt.Sprintf(" AND event_sequence < $%d", argIdx)
		args = append(args, *beforeSequence)
		argIdx++
	}

	query += " ORDER BY event_sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalHistoryEntry
	for rows.Next() {
		var e JournalHistoryEntry
		if err := rows.Scan(
			&e.JournalID, &e.Sequence, &e.JournalType,
			&e.DebitAccount, &e.CreditAccount, &e.Amount,
			&e.Reference, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// GetEvents pages the raw event log from a sequence, for audit and
// downstream replay.
func (s *Service) GetEvents(ctx context.Context, fromSequence int64, limit int) ([]EventRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sequence, event_type, idempotency_key, COALESCE(market_id, ''),
		       payload, state_hash, prev_hash
		FROM ledger_log.events
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var e EventRecord
		if err := rows.Scan(
			&e.Sequence, &e.EventType, &e.IdempotencyKey, &e.MarketID,
			&e.Payload, &e.StateHash, &e.PrevHash,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// VerifyIntegrity checks hash chain continuity and the global zero-sum
// invariant over projected balances.
func (s *Service) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e1.sequence
		FROM ledger_log.events e1
		JOIN ledger_log.events e2 ON e2.sequence = e1.sequence - 1
		WHERE e1.prev_hash != e2.state_hash
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Every journal moves tokens between accounts, so the projected
	// balances must sum to zero.
	var total sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `
		SELECT SUM(balance) FROM projections.balances
	`).Scan(&total); err != nil {
		return nil, err
	}
	if total.Valid {
		report.GlobalImbalance = total.Int64
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0 && report.GlobalImbalance == 0
	return report, nil
}

// --- helpers ---

func (s *Service) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT last_sequence FROM projections.watermark WHERE worker_id = 'main'
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}

func (s *Service) getProjectedBalance(ctx context.Context, accountPath string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		SELECT balance FROM projections.balances WHERE account_path = $1
	`, accountPath).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}
