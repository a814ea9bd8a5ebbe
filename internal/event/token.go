package event

import (
	"time"

	"github.com/google/uuid"
)

// TokenDeposit credits a user wallet from the external bridge.
// Idempotency key: deposit_id assigned by the bridge.
type TokenDeposit struct {
	DepositID uuid.UUID // Idempotency key
	UserID    uuid.UUID
	Amount    int64 // Fixed-point
	Sequence  int64
	Timestamp time.Time
}

func (t *TokenDeposit) IdempotencyKey() string { return t.DepositID.String() }
func (t *TokenDeposit) EventType() EventType   { return EventTypeTokenDeposit }
func (t *TokenDeposit) MarketID() *string      { return nil }
func (t *TokenDeposit) SourceSequence() int64  { return t.Sequence }

// TokenWithdrawal burns wallet funds for an external bridge
// withdrawal.
type TokenWithdrawal struct {
	WithdrawalID uuid.UUID // Idempotency key
	UserID       uuid.UUID
	Amount       int64
	Sequence     int64
	Timestamp    time.Time
}

func (t *TokenWithdrawal) IdempotencyKey() string { return t.WithdrawalID.String() }
func (t *TokenWithdrawal) EventType() EventType   { return EventTypeTokenWithdrawal }
func (t *TokenWithdrawal) MarketID() *string      { return nil }
func (t *TokenWithdrawal) SourceSequence() int64  { return t.Sequence }
