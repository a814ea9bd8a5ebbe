package position

import (
	"github.com/google/uuid"
)

// Direction of exposure. A position holds long shares XOR short shares;
// both zero means flat.
type Direction int32

const (
	DirectionNone Direction = iota
	DirectionLong
	DirectionShort
)

func (d Direction) String() string {
	switch d {
	case DirectionLong:
		return "long"
	case DirectionShort:
		return "short"
	default:
		return "none"
	}
}

// Opposite returns the other trading direction.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionLong:
		return DirectionShort
	case DirectionShort:
		return DirectionLong
	default:
		return DirectionNone
	}
}

// Position is a user's exposure in one market. Created implicitly on first
// trade, mutated only by the settlement engine, zeroed when shares reach
// zero. Invariant: LongShares > 0 XOR ShortShares > 0 XOR both zero.
type Position struct {
	User              uuid.UUID
	Market            string
	LongShares        int64
	ShortShares       int64
	MeanEntryPrice    int64 // Precision-scaled
	MeanEntrySpread   int64 // Precision-scaled
	MeanEntryLeverage int64 // Precision-scaled, Precision = 1x
	LiquidationPrice  int64 // Precision-scaled, derived
	LastUpdated       int64 // epoch seconds, interest accrual anchor
	Version           int64
}

// IsFlat reports whether the position has no exposure.
func (p *Position) IsFlat() bool {
	return p.LongShares == 0 && p.ShortShares == 0
}

// Direction returns the side of the open exposure.
func (p *Position) Direction() Direction {
	switch {
	case p.LongShares > 0:
		return DirectionLong
	case p.ShortShares > 0:
		return DirectionShort
	default:
		return DirectionNone
	}
}

// Shares returns the open share count regardless of direction.
func (p *Position) Shares() int64 {
	if p.LongShares > 0 {
		return p.LongShares
	}
	return p.ShortShares
}

// Zero logically destroys the position: all economic fields reset, the
// record itself survives for versioning and audit.
func (p *Position) Zero() {
	p.LongShares = 0
	p.ShortShares = 0
	p.MeanEntryPrice = 0
	p.MeanEntrySpread = 0
	p.MeanEntryLeverage = 0
	p.LiquidationPrice = 0
	p.LastUpdated = 0
	p.Version++
}

// Clone returns a deep copy, used for all-or-nothing settlement staging.
func (p *Position) Clone() *Position {
	cp := *p
	return &cp
}

// CanonicalBytes returns a deterministic serialization for state hashing.
func (p *Position) CanonicalBytes() []byte {
	buf := make([]byte, 0, 96)
	buf = append(buf, p.User[:]...)
	buf = append(buf, byte(len(p.Market)))
	buf = append(buf, []byte(p.Market)...)
	buf = appendInt64LE(buf, p.LongShares)
	buf = appendInt64LE(buf, p.ShortShares)
	buf = appendInt64LE(buf, p.MeanEntryPrice)
	buf = appendInt64LE(buf, p.MeanEntrySpread)
	buf = appendInt64LE(buf, p.MeanEntryLeverage)
	buf = appendInt64LE(buf, p.LiquidationPrice)
	buf = appendInt64LE(buf, p.LastUpdated)
	return buf
}

func appendInt64LE(buf []byte, v int64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}
