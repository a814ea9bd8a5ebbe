package order

import (
	"github.com/google/uuid"

	"SynthLedger/internal/position"
)

// Status is the order lifecycle state. Pending and CancelRequested are
// live; Settled and Cancelled are terminal and immutable. A cancel
// request does not block settlement, it only authorizes cancellation.
type Status int32

const (
	StatusPending Status = iota
	StatusCancelRequested
	StatusSettled
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCancelRequested:
		return "cancel_requested"
	case StatusSettled:
		return "settled"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is immutable.
func (s Status) Terminal() bool {
	return s == StatusSettled || s == StatusCancelled
}

// Order is a user's request to change exposure in one market. The close
// leg and open leg may both be present; a close of the full held amount
// combined with an opposite-direction open is a rollover.
type Order struct {
	ID     int64
	User   uuid.UUID
	Market string

	// CloseShares is the number of existing shares to close, zero for a
	// pure open.
	CloseShares int64
	// OpenAmount is the open leg size: a Precision-scaled token amount,
	// or a whole share count when AmountInShares is set.
	OpenAmount     int64
	AmountInShares bool
	Direction      position.Direction
	Leverage       int64 // Precision-scaled, Precision = 1x

	// Settlement preconditions. Zero means unset. When both price
	// thresholds are set, each must hold independently.
	PriceAbove int64
	PriceBelow int64
	GoodFrom   int64
	GoodUntil  int64

	Status Status
	// HoldAmount is the escrow hold placed at submission, refunded on
	// cancellation or consumed at settlement.
	HoldAmount int64
	// EngineVersion records which settlement engine the order was
	// created against. Orders from a prior version are not settled
	// until an operator re-points them.
	EngineVersion int64

	CreatedAt int64
	ClosedAt  int64 // settlement or cancellation time
}

// Store keeps all orders keyed by their monotonically increasing id.
// Not thread-safe: mutation happens only inside the single-threaded
// settlement core.
type Store struct {
	orders map[int64]*Order
	nextID int64
}

func NewStore() *Store {
	return &Store{orders: make(map[int64]*Order), nextID: 1}
}

// NextID allocates the next order id.
func (s *Store) NextID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// Put installs an order record.
func (s *Store) Put(o *Order) {
	s.orders[o.ID] = o
	if o.ID >= s.nextID {
		s.nextID = o.ID + 1
	}
}

// Get returns the order or nil.
func (s *Store) Get(id int64) *Order {
	return s.orders[id]
}

// All returns every order record.
func (s *Store) All() []*Order {
	out := make([]*Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out
}

// Live returns all non-terminal orders.
func (s *Store) Live() []*Order {
	out := make([]*Order, 0)
	for _, o := range s.orders {
		if !o.Status.Terminal() {
			out = append(out, o)
		}
	}
	return out
}
