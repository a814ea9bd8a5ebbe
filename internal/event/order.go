package event

import (
	"time"

	"github.com/google/uuid"
)

// OrderSubmit is a user's order request entering the ledger.
// Idempotency key: request_id (UUID from the API edge).
type OrderSubmit struct {
	RequestID      uuid.UUID // Idempotency key
	UserID         uuid.UUID
	Market         string
	CloseShares    int64
	OpenAmount     int64 // Fixed-point token amount, or whole shares
	AmountInShares bool
	Direction      string // "long" | "short"
	Leverage       int64  // Fixed-point, 1e8 = 1x
	PriceAbove     int64
	PriceBelow     int64
	GoodFrom       int64
	GoodUntil      int64
	Sequence       int64
	Timestamp      time.Time // Versioned input timestamp (NOT wall-clock)
}

func (o *OrderSubmit) IdempotencyKey() string { return o.RequestID.String() }
func (o *OrderSubmit) EventType() EventType   { return EventTypeOrderSubmit }
func (o *OrderSubmit) MarketID() *string      { m := o.Market; return &m }
func (o *OrderSubmit) SourceSequence() int64  { return o.Sequence }

// OrderCancelRequest flags the owner's intent to cancel.
type OrderCancelRequest struct {
	RequestID uuid.UUID
	UserID    uuid.UUID
	OrderID   int64
	Sequence  int64
	Timestamp time.Time
}

func (o *OrderCancelRequest) IdempotencyKey() string { return o.RequestID.String() }
func (o *OrderCancelRequest) EventType() EventType   { return EventTypeOrderCancelRequest }
func (o *OrderCancelRequest) MarketID() *string      { return nil }
func (o *OrderCancelRequest) SourceSequence() int64  { return o.Sequence }

// OrderCancelFinalize completes a requested cancellation. Caller must
// hold the settler role.
type OrderCancelFinalize struct {
	RequestID uuid.UUID
	CallerID  uuid.UUID
	OrderID   int64
	Sequence  int64
	Timestamp time.Time
}

func (o *OrderCancelFinalize) IdempotencyKey() string { return o.RequestID.String() }
func (o *OrderCancelFinalize) EventType() EventType   { return EventTypeOrderCancelFinalize }
func (o *OrderCancelFinalize) MarketID() *string      { return nil }
func (o *OrderCancelFinalize) SourceSequence() int64  { return o.Sequence }

// OrderAdminCancel bypasses the two-phase flag.
type OrderAdminCancel struct {
	RequestID uuid.UUID
	CallerID  uuid.UUID
	OrderID   int64
	Sequence  int64
	Timestamp time.Time
}

func (o *OrderAdminCancel) IdempotencyKey() string { return o.RequestID.String() }
func (o *OrderAdminCancel) EventType() EventType   { return EventTypeOrderAdminCancel }
func (o *OrderAdminCancel) MarketID() *string      { return nil }
func (o *OrderAdminCancel) SourceSequence() int64  { return o.Sequence }

// OrderSettle carries a price source's settlement call for one order.
// Idempotency key: settlement_id from the price source.
type OrderSettle struct {
	SettlementID    uuid.UUID // Idempotency key
	CallerID        uuid.UUID
	OrderID         int64
	Price           int64 // Fixed-point
	UnadjustedPrice int64
	Spread          int64
	PositionTime    int64 // epoch seconds, the settlement "now"
	LiquidationTime int64 // optional accrual-end override
	Sequence        int64
	Timestamp       time.Time
}

func (o *OrderSettle) IdempotencyKey() string { return o.SettlementID.String() }
func (o *OrderSettle) EventType() EventType   { return EventTypeOrderSettle }
func (o *OrderSettle) MarketID() *string      { return nil }
func (o *OrderSettle) SourceSequence() int64  { return o.Sequence }

// OrderRepoint migrates a live order to the current engine version.
type OrderRepoint struct {
	RequestID uuid.UUID
	CallerID  uuid.UUID
	OrderID   int64
	Sequence  int64
	Timestamp time.Time
}

func (o *OrderRepoint) IdempotencyKey() string { return o.RequestID.String() }
func (o *OrderRepoint) EventType() EventType   { return EventTypeOrderRepoint }
func (o *OrderRepoint) MarketID() *string      { return nil }
func (o *OrderRepoint) SourceSequence() int64  { return o.Sequence }
