package position

import (
	"github.com/google/uuid"
)

// Key identifies a position record.
type Key struct {
	User   uuid.UUID
	Market string
}

// Book holds all position records. Not thread-safe: mutation happens only
// inside the single-threaded settlement core.
type Book struct {
	positions map[Key]*Position
}

func NewBook() *Book {
	return &Book{positions: make(map[Key]*Position)}
}

// Get returns the existing position or nil.
func (b *Book) Get(user uuid.UUID, market string) *Position {
	return b.positions[Key{User: user, Market: market}]
}

// GetOrCreate returns the existing position or a fresh flat record.
func (b *Book) GetOrCreate(user uuid.UUID, market string) *Position {
	key := Key{User: user, Market: market}
	pos := b.positions[key]
	if pos == nil {
		pos = &Position{User: user, Market: market}
		b.positions[key] = pos
	}
	return pos
}

// Set installs a position record (settlement commit, snapshot restore).
func (b *Book) Set(pos *Position) {
	b.positions[Key{User: pos.User, Market: pos.Market}] = pos
}

// All returns every position record.
func (b *Book) All() []*Position {
	out := make([]*Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, pos)
	}
	return out
}

// OpenInMarket returns all non-flat positions in a market. Used by the
// bulk-delist path.
func (b *Book) OpenInMarket(market string) []*Position {
	out := make([]*Position, 0)
	for key, pos := range b.positions {
		if key.Market == market && !pos.IsFlat() {
			out = append(out, pos)
		}
	}
	return out
}

// UserPositions returns all positions held by a user.
func (b *Book) UserPositions(user uuid.UUID) []*Position {
	out := make([]*Position, 0)
	for key, pos := range b.positions {
		if key.User == user {
			out = append(out, pos)
		}
	}
	return out
}
