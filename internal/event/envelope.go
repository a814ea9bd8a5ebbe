package event

import (
	"time"
)

// EventType discriminator for event payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeOrderSubmit
	EventTypeOrderCancelRequest
	EventTypeOrderCancelFinalize
	EventTypeOrderAdminCancel
	EventTypeOrderSettle
	EventTypeOrderRepoint
	EventTypeMarketCreate
	EventTypeMarketActivate
	EventTypeMarketDeactivate
	EventTypeMarketFreezePrice
	EventTypeMarketDelist
	EventTypeRateAppend
	EventTypeRateSetActive
	EventTypeEscrowDelayedMint
	EventTypeEscrowAdminApprove
	EventTypeEscrowAdminDisapprove
	EventTypeEscrowResetDaily
	EventTypeTokenDeposit
	EventTypeTokenWithdrawal
)

// EventEnvelope wraps every event in the log
type EventEnvelope struct {
	// Global monotonic sequence assigned by core
	Sequence int64

	// Stable idempotency key from upstream
	IdempotencyKey string

	// Event type discriminator
	EventType EventType

	// Market context (nullable for global events)
	MarketID *string

	// Versioned input timestamp (NOT wall-clock)
	Timestamp time.Time

	// Upstream sequence for ordering validation
	SourceSequence int64

	// JSON-encoded event-specific data
	Payload []byte

	// SHA-256 of state AFTER applying this event
	StateHash [32]byte

	// Previous event's state hash (chain integrity)
	PrevHash [32]byte
}

// Event is the interface all event payloads must implement
type Event interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// EventType returns the discriminator
	EventType() EventType

	// MarketID returns the market context (nil for global events)
	MarketID() *string

	// SourceSequence returns upstream ordering key
	SourceSequence() int64
}

func (et EventType) String() string {
	switch et {
	case EventTypeOrderSubmit:
		return "OrderSubmit"
	case EventTypeOrderCancelRequest:
		return "OrderCancelRequest"
	case EventTypeOrderCancelFinalize:
		return "OrderCancelFinalize"
	case EventTypeOrderAdminCancel:
		return "OrderAdminCancel"
	case EventTypeOrderSettle:
		return "OrderSettle"
	case EventTypeOrderRepoint:
		return "OrderRepoint"
	case EventTypeMarketCreate:
		return "MarketCreate"
	case EventTypeMarketActivate:
		return "MarketActivate"
	case EventTypeMarketDeactivate:
		return "MarketDeactivate"
	case EventTypeMarketFreezePrice:
		return "MarketFreezePrice"
	case EventTypeMarketDelist:
		return "MarketDelist"
	case EventTypeRateAppend:
		return "RateAppend"
	case EventTypeRateSetActive:
		return "RateSetActive"
	case EventTypeEscrowDelayedMint:
		return "EscrowDelayedMint"
	case EventTypeEscrowAdminApprove:
		return "EscrowAdminApprove"
	case EventTypeEscrowAdminDisapprove:
		return "EscrowAdminDisapprove"
	case EventTypeEscrowResetDaily:
		return "EscrowResetDaily"
	case EventTypeTokenDeposit:
		return "TokenDeposit"
	case EventTypeTokenWithdrawal:
		return "TokenWithdrawal"
	default:
		return "Unknown"
	}
}
