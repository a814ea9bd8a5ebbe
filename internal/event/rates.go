package event

import (
	"time"

	"github.com/google/uuid"
)

// RateAppend adds an interest rate change to the schedule.
type RateAppend struct {
	RequestID uuid.UUID
	CallerID  uuid.UUID
	Rate      int64 // Fixed-point per-day rate
	ValidFrom int64 // epoch seconds, strictly increasing
	Sequence  int64
	Timestamp time.Time
}

func (r *RateAppend) IdempotencyKey() string { return r.RequestID.String() }
func (r *RateAppend) EventType() EventType   { return EventTypeRateAppend }
func (r *RateAppend) MarketID() *string      { return nil }
func (r *RateAppend) SourceSequence() int64  { return r.Sequence }

// RateSetActive toggles a schedule entry.
type RateSetActive struct {
	RequestID uuid.UUID
	CallerID  uuid.UUID
	Index     int
	Active    bool
	Sequence  int64
	Timestamp time.Time
}

func (r *RateSetActive) IdempotencyKey() string { return r.RequestID.String() }
func (r *RateSetActive) EventType() EventType   { return EventTypeRateSetActive }
func (r *RateSetActive) MarketID() *string      { return nil }
func (r *RateSetActive) SourceSequence() int64  { return r.Sequence }
