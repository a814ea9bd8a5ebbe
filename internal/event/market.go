package event

import (
	"time"

	"github.com/google/uuid"
)

// MarketCreate registers a new tradeable market.
type MarketCreate struct {
	RequestID uuid.UUID
	CallerID  uuid.UUID
	Market    string
	Sequence  int64
	Timestamp time.Time
}

func (m *MarketCreate) IdempotencyKey() string { return m.RequestID.String() }
func (m *MarketCreate) EventType() EventType   { return EventTypeMarketCreate }
func (m *MarketCreate) MarketID() *string      { s := m.Market; return &s }
func (m *MarketCreate) SourceSequence() int64  { return m.Sequence }

// MarketActivate opens a market for trading.
type MarketActivate struct {
	RequestID uuid.UUID
	CallerID  uuid.UUID
	Market    string
	Sequence  int64
	Timestamp time.Time
}

func (m *MarketActivate) IdempotencyKey() string { return m.RequestID.String() }
func (m *MarketActivate) EventType() EventType   { return EventTypeMarketActivate }
func (m *MarketActivate) MarketID() *string      { s := m.Market; return &s }
func (m *MarketActivate) SourceSequence() int64  { return m.Sequence }

// MarketDeactivate closes a market to new trades.
type MarketDeactivate struct {
	RequestID uuid.UUID
	CallerID  uuid.UUID
	Market    string
	Sequence  int64
	Timestamp time.Time
}

func (m *MarketDeactivate) IdempotencyKey() string { return m.RequestID.String() }
func (m *MarketDeactivate) EventType() EventType   { return EventTypeMarketDeactivate }
func (m *MarketDeactivate) MarketID() *string      { s := m.Market; return &s }
func (m *MarketDeactivate) SourceSequence() int64  { return m.Sequence }

// MarketFreezePrice sets the terminal close price of a deactivated
// market.
type MarketFreezePrice struct {
	RequestID uuid.UUID
	CallerID  uuid.UUID
	Market    string
	Price     int64 // Fixed-point
	Sequence  int64
	Timestamp time.Time
}

func (m *MarketFreezePrice) IdempotencyKey() string { return m.RequestID.String() }
func (m *MarketFreezePrice) EventType() EventType   { return EventTypeMarketFreezePrice }
func (m *MarketFreezePrice) MarketID() *string      { s := m.Market; return &s }
func (m *MarketFreezePrice) SourceSequence() int64  { return m.Sequence }

// MarketDelist runs one bounded force-close pass at the frozen price.
type MarketDelist struct {
	RequestID uuid.UUID
	CallerID  uuid.UUID
	Market    string
	Budget    int
	Sequence  int64
	Timestamp time.Time
}

func (m *MarketDelist) IdempotencyKey() string { return m.RequestID.String() }
func (m *MarketDelist) EventType() EventType   { return EventTypeMarketDelist }
func (m *MarketDelist) MarketID() *string      { s := m.Market; return &s }
func (m *MarketDelist) SourceSequence() int64  { return m.Sequence }
