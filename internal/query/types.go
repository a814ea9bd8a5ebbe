package query

import "github.com/google/uuid"

// BalanceResponse is a user's token balances. All responses carry
// as_of_sequence so callers can reason about projection freshness.
type BalanceResponse struct {
	UserID uuid.UUID `json:"user_id"`

	// Ledger balances, fixed-point tokens.
	WalletBalance int64 `json:"wallet_balance"`
	HeldBalance   int64 `json:"held_balance"` // reserved by pending orders
	TotalBalance  int64 `json:"total_balance"`

	AsOfSequence int64 `json:"as_of_sequence"`
}

// SettlementHistoryResponse is one settled order.
type SettlementHistoryResponse struct {
	UserID          uuid.UUID `json:"user_id"`
	MarketID        string    `json:"market_id"`
	OrderID         int64     `json:"order_id"`
	Outcome         string    `json:"outcome"`
	Price           int64     `json:"price"`
	ClosedShares    int64     `json:"closed_shares"`
	OpenedShares    int64     `json:"opened_shares"`
	Payout          int64     `json:"payout"`
	Minted          int64     `json:"minted"`
	Escrowed        int64     `json:"escrowed"`
	InterestCharged int64     `json:"interest_charged"`
	SettledAt       int64     `json:"settled_at"`
	Sequence        int64     `json:"sequence"`
	AsOfSequence    int64     `json:"as_of_sequence"`
}

// JournalHistoryEntry is one double-entry token movement.
type JournalHistoryEntry struct {
	JournalID     string `json:"journal_id"`
	Sequence      int64  `json:"sequence"`
	JournalType   string `json:"journal_type"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	Amount        int64  `json:"amount"`
	Reference     string `json:"reference"`
	CreatedAt     int64  `json:"created_at"`
}

// EventRecord is one event-log row for audit queries.
type EventRecord struct {
	Sequence       int64  `json:"sequence"`
	EventType      string `json:"event_type"`
	IdempotencyKey string `json:"idempotency_key"`
	MarketID       string `json:"market_id,omitempty"`
	Payload        []byte `json:"payload"`
	StateHash      []byte `json:"state_hash"`
	PrevHash       []byte `json:"prev_hash"`
}

// IntegrityReport is the result of an integrity verification check.
type IntegrityReport struct {
	IsHealthy       bool    `json:"is_healthy"`
	HashChainBreaks []int64 `json:"hash_chain_breaks,omitempty"`
	GlobalImbalance int64   `json:"global_imbalance"`
}
