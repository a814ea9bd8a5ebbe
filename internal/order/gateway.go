package order

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"SynthLedger/internal/auth"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/market"
	fpmath "SynthLedger/internal/math"
	"SynthLedger/internal/position"
)

var (
	ErrMarketInactive  = errors.New("order: market is not active")
	ErrInvalidLeverage = errors.New("order: leverage out of bounds")
	ErrInvalidOrder    = errors.New("order: malformed order")
	ErrUnknownOrder    = errors.New("order: unknown order id")
	ErrNotPending      = errors.New("order: order is not pending")
	ErrNotOwner        = errors.New("order: caller does not own the order")
	ErrNotRequested    = errors.New("order: cancellation was not requested by the owner")
)

// SubmitParams carries the user-supplied order fields.
type SubmitParams struct {
	Market         string
	CloseShares    int64
	OpenAmount     int64
	AmountInShares bool
	Direction      position.Direction
	Leverage       int64
	PriceAbove     int64
	PriceBelow     int64
	GoodFrom       int64
	GoodUntil      int64
}

// Gateway accepts, validates and stores orders, and runs the two-phase
// cancellation protocol. Settlement itself belongs to the engine; the
// gateway only guards entry.
type Gateway struct {
	store       *Store
	markets     *market.Controller
	positions   *position.Book
	tokens      ledger.TokenLedger
	permissions auth.PermissionRegistry
	maxLeverage int64
}

func NewGateway(store *Store, markets *market.Controller, positions *position.Book, tokens ledger.TokenLedger, permissions auth.PermissionRegistry, maxLeverage int64) *Gateway {
	return &Gateway{
		store:       store,
		markets:     markets,
		positions:   positions,
		tokens:      tokens,
		permissions: permissions,
		maxLeverage: maxLeverage,
	}
}

func (g *Gateway) Store() *Store { return g.store }

// Submit validates an order request, places the escrow hold for its
// open leg and stores it Pending. Returns the new monotonically
// increasing order id.
func (g *Gateway) Submit(user uuid.UUID, p SubmitParams, now int64) (*Order, error) {
	if err := g.validate(user, p); err != nil {
		return nil, err
	}

	o := &Order{
		ID:             g.store.NextID(),
		User:           user,
		Market:         p.Market,
		CloseShares:    p.CloseShares,
		OpenAmount:     p.OpenAmount,
		AmountInShares: p.AmountInShares,
		Direction:      p.Direction,
		Leverage:       fpmath.ClampLeverage(p.Leverage),
		PriceAbove:     p.PriceAbove,
		PriceBelow:     p.PriceBelow,
		GoodFrom:       p.GoodFrom,
		GoodUntil:      p.GoodUntil,
		Status:         StatusPending,
		CreatedAt:      now,
	}

	// Token-denominated open legs reserve their stake up front. Share-
	// denominated opens are charged from the wallet at settlement since
	// their cost depends on the settlement price.
	if p.OpenAmount > 0 && !p.AmountInShares {
		if err := g.tokens.Hold(user, p.OpenAmount, orderRef(o.ID), now); err != nil {
			return nil, err
		}
		o.HoldAmount = p.OpenAmount
	}

	g.store.Put(o)
	return o, nil
}

func (g *Gateway) validate(user uuid.UUID, p SubmitParams) error {
	if p.CloseShares < 0 || p.OpenAmount < 0 {
		return fmt.Errorf("%w: negative amounts", ErrInvalidOrder)
	}
	if p.CloseShares == 0 && p.OpenAmount == 0 {
		return fmt.Errorf("%w: order has neither a close nor an open leg", ErrInvalidOrder)
	}
	if p.PriceAbove < 0 || p.PriceBelow < 0 {
		return fmt.Errorf("%w: negative price threshold", ErrInvalidOrder)
	}
	if p.Direction != position.DirectionLong && p.Direction != position.DirectionShort {
		return fmt.Errorf("%w: direction must be long or short", ErrInvalidOrder)
	}
	if p.Leverage < fpmath.Precision || p.Leverage > g.maxLeverage {
		return fmt.Errorf("%w: leverage %d outside [1x, %d]", ErrInvalidLeverage, p.Leverage, g.maxLeverage)
	}

	if g.markets.IsActive(p.Market) {
		return nil
	}

	// Deactivated markets admit exactly one order shape: a full close of
	// the caller's remaining shares against the frozen delisting price.
	if _, err := g.markets.FrozenPrice(p.Market); err != nil {
		if errors.Is(err, market.ErrUnknownMarket) {
			return err
		}
		return ErrMarketInactive
	}
	pos := g.positions.Get(user, p.Market)
	if pos == nil || pos.IsFlat() || p.OpenAmount != 0 || p.CloseShares != pos.Shares() {
		return ErrMarketInactive
	}
	return nil
}

// InitiateCancel flags the owner's intent to cancel. The order stays
// settleable; only the authorized settlement caller may finalize.
func (g *Gateway) InitiateCancel(caller uuid.UUID, id int64) error {
	o := g.store.Get(id)
	if o == nil {
		return ErrUnknownOrder
	}
	if o.User != caller {
		return ErrNotOwner
	}
	if o.Status.Terminal() {
		return ErrNotPending
	}
	o.Status = StatusCancelRequested
	return nil
}

// FinalizeCancel completes a requested cancellation: settler-only,
// refunds the escrow hold exactly and marks the order Cancelled.
func (g *Gateway) FinalizeCancel(caller uuid.UUID, id int64, now int64) error {
	if err := auth.Require(g.permissions, auth.RoleSettler, caller); err != nil {
		return err
	}
	o := g.store.Get(id)
	if o == nil {
		return ErrUnknownOrder
	}
	if o.Status.Terminal() {
		return ErrNotPending
	}
	if o.Status != StatusCancelRequested {
		return ErrNotRequested
	}
	return g.cancel(o, now)
}

// AdminCancel bypasses the two-phase flag with the same refund
// semantics.
func (g *Gateway) AdminCancel(caller uuid.UUID, id int64, now int64) error {
	if err := auth.Require(g.permissions, auth.RoleAdmin, caller); err != nil {
		return err
	}
	o := g.store.Get(id)
	if o == nil {
		return ErrUnknownOrder
	}
	if o.Status.Terminal() {
		return ErrNotPending
	}
	return g.cancel(o, now)
}

func (g *Gateway) cancel(o *Order, now int64) error {
	if o.HoldAmount > 0 {
		if err := g.tokens.ReleaseHold(o.User, o.HoldAmount, orderRef(o.ID), now); err != nil {
			return err
		}
	}
	o.Status = StatusCancelled
	o.ClosedAt = now
	return nil
}

func orderRef(id int64) string {
	return "order-" + strconv.FormatInt(id, 10)
}
