package event

import (
	"time"

	"github.com/google/uuid"
)

// EscrowDelayedMint is a user's self-service release of time-locked
// escrow.
type EscrowDelayedMint struct {
	RequestID uuid.UUID
	UserID    uuid.UUID
	Sequence  int64
	Timestamp time.Time
}

func (e *EscrowDelayedMint) IdempotencyKey() string { return e.RequestID.String() }
func (e *EscrowDelayedMint) EventType() EventType   { return EventTypeEscrowDelayedMint }
func (e *EscrowDelayedMint) MarketID() *string      { return nil }
func (e *EscrowDelayedMint) SourceSequence() int64  { return e.Sequence }

// EscrowAdminApprove releases escrowed value immediately.
type EscrowAdminApprove struct {
	RequestID uuid.UUID
	CallerID  uuid.UUID
	UserID    uuid.UUID
	Amount    int64 // Fixed-point
	Sequence  int64
	Timestamp time.Time
}

func (e *EscrowAdminApprove) IdempotencyKey() string { return e.RequestID.String() }
func (e *EscrowAdminApprove) EventType() EventType   { return EventTypeEscrowAdminApprove }
func (e *EscrowAdminApprove) MarketID() *string      { return nil }
func (e *EscrowAdminApprove) SourceSequence() int64  { return e.Sequence }

// EscrowAdminDisapprove voids escrowed value without minting it.
type EscrowAdminDisapprove struct {
	RequestID uuid.UUID
	CallerID  uuid.UUID
	UserID    uuid.UUID
	Amount    int64
	Sequence  int64
	Timestamp time.Time
}

func (e *EscrowAdminDisapprove) IdempotencyKey() string { return e.RequestID.String() }
func (e *EscrowAdminDisapprove) EventType() EventType   { return EventTypeEscrowAdminDisapprove }
func (e *EscrowAdminDisapprove) MarketID() *string      { return nil }
func (e *EscrowAdminDisapprove) SourceSequence() int64  { return e.Sequence }

// EscrowResetDaily zeroes the aggregate mint counter, an explicit
// operator action.
type EscrowResetDaily struct {
	RequestID uuid.UUID
	CallerID  uuid.UUID
	Sequence  int64
	Timestamp time.Time
}

func (e *EscrowResetDaily) IdempotencyKey() string { return e.RequestID.String() }
func (e *EscrowResetDaily) EventType() EventType   { return EventTypeEscrowResetDaily }
func (e *EscrowResetDaily) MarketID() *string      { return nil }
func (e *EscrowResetDaily) SourceSequence() int64  { return e.Sequence }
