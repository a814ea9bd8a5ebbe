package order_test

import (
	"errors"
	"testing"

	"SynthLedger/internal/auth"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/market"
	fpmath "SynthLedger/internal/math"
	"SynthLedger/internal/order"
	"SynthLedger/internal/position"

	"github.com/google/uuid"
)

const p = fpmath.Precision

type fixture struct {
	gateway *order.Gateway
	tokens  *ledger.JournalLedger
	markets *market.Controller
	book    *position.Book
	admin   uuid.UUID
	settler uuid.UUID
	user    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tokens:  ledger.NewJournalLedger(ledger.NewBalanceTracker()),
		markets: market.NewController(),
		book:    position.NewBook(),
		admin:   uuid.New(),
		settler: uuid.New(),
		user:    uuid.New(),
	}
	reg := auth.NewStaticRegistry()
	reg.Grant(auth.RoleAdmin, f.admin)
	reg.Grant(auth.RoleSettler, f.settler)
	f.gateway = order.NewGateway(order.NewStore(), f.markets, f.book, f.tokens, reg, 10*p)
	f.markets.Create("AAPL", 1)
	f.tokens.Mint(f.user, 10_000*p, "seed", 1)
	return f
}

func openParams(amount int64) order.SubmitParams {
	return order.SubmitParams{
		Market:     "AAPL",
		OpenAmount: amount,
		Direction:  position.DirectionLong,
		Leverage:   2 * p,
	}
}

func TestSubmit_PlacesHoldAndAssignsMonotonicIDs(t *testing.T) {
	f := newFixture(t)

	o1, err := f.gateway.Submit(f.user, openParams(220*p), 10)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	o2, err := f.gateway.Submit(f.user, openParams(100*p), 11)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o2.ID <= o1.ID {
		t.Errorf("ids must increase: %d then %d", o1.ID, o2.ID)
	}
	if got := f.tokens.HeldBalance(f.user); got != 320*p {
		t.Errorf("held balance: got %d, want %d", got, 320*p)
	}
	if got := f.tokens.BalanceOf(f.user); got != 9_680*p {
		t.Errorf("wallet: got %d, want %d", got, 9_680*p)
	}
	if o1.Status != order.StatusPending {
		t.Errorf("status: got %s, want pending", o1.Status)
	}
}

func TestSubmit_RejectsBadLeverage(t *testing.T) {
	f := newFixture(t)

	params := openParams(100 * p)
	params.Leverage = p / 2
	if _, err := f.gateway.Submit(f.user, params, 10); !errors.Is(err, order.ErrInvalidLeverage) {
		t.Errorf("sub-1x leverage: got %v, want ErrInvalidLeverage", err)
	}
	params.Leverage = 11 * p
	if _, err := f.gateway.Submit(f.user, params, 10); !errors.Is(err, order.ErrInvalidLeverage) {
		t.Errorf("over-max leverage: got %v, want ErrInvalidLeverage", err)
	}
}

func TestSubmit_RejectsMalformedOrders(t *testing.T) {
	f := newFixture(t)

	params := openParams(0)
	if _, err := f.gateway.Submit(f.user, params, 10); !errors.Is(err, order.ErrInvalidOrder) {
		t.Errorf("empty order: got %v, want ErrInvalidOrder", err)
	}
	params = openParams(100 * p)
	params.Direction = position.DirectionNone
	if _, err := f.gateway.Submit(f.user, params, 10); !errors.Is(err, order.ErrInvalidOrder) {
		t.Errorf("missing direction: got %v, want ErrInvalidOrder", err)
	}
}

func TestSubmit_RejectsInactiveMarket(t *testing.T) {
	f := newFixture(t)
	f.markets.Deactivate("AAPL")

	if _, err := f.gateway.Submit(f.user, openParams(100*p), 10); !errors.Is(err, order.ErrMarketInactive) {
		t.Errorf("inactive market open: got %v, want ErrMarketInactive", err)
	}
}

func TestSubmit_AllowsFullCloseAgainstFrozenPrice(t *testing.T) {
	f := newFixture(t)
	f.book.Set(&position.Position{User: f.user, Market: "AAPL", LongShares: 10, MeanEntryPrice: 300 * p, MeanEntryLeverage: 2 * p})
	f.markets.Deactivate("AAPL")

	full := order.SubmitParams{Market: "AAPL", CloseShares: 10, Direction: position.DirectionLong, Leverage: 2 * p}

	// Without a frozen price even the full close is rejected.
	if _, err := f.gateway.Submit(f.user, full, 10); !errors.Is(err, order.ErrMarketInactive) {
		t.Fatalf("close without frozen price: got %v, want ErrMarketInactive", err)
	}

	f.markets.SetDeactivatedPrice("AAPL", 200*p)
	if _, err := f.gateway.Submit(f.user, full, 10); err != nil {
		t.Fatalf("full close against frozen price: %v", err)
	}

	// A partial close is still rejected.
	partial := full
	partial.CloseShares = 5
	if _, err := f.gateway.Submit(f.user, partial, 10); !errors.Is(err, order.ErrMarketInactive) {
		t.Errorf("partial close on delisted market: got %v, want ErrMarketInactive", err)
	}
}

func TestSubmit_InsufficientWallet(t *testing.T) {
	f := newFixture(t)

	if _, err := f.gateway.Submit(f.user, openParams(20_000*p), 10); !errors.Is(err, ledger.ErrInsufficientBalance) {
		t.Errorf("oversized hold: got %v, want ErrInsufficientBalance", err)
	}
	if got := f.tokens.BalanceOf(f.user); got != 10_000*p {
		t.Errorf("failed submit must not touch the wallet: got %d", got)
	}
}

func TestCancel_TwoPhase(t *testing.T) {
	f := newFixture(t)
	o, _ := f.gateway.Submit(f.user, openParams(220*p), 10)

	// Finalize before the owner flags intent fails with NotRequested.
	if err := f.gateway.FinalizeCancel(f.settler, o.ID, 11); !errors.Is(err, order.ErrNotRequested) {
		t.Fatalf("finalize without request: got %v, want ErrNotRequested", err)
	}

	// Only the owner may initiate.
	if err := f.gateway.InitiateCancel(uuid.New(), o.ID); !errors.Is(err, order.ErrNotOwner) {
		t.Fatalf("foreign initiate: got %v, want ErrNotOwner", err)
	}
	if err := f.gateway.InitiateCancel(f.user, o.ID); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if o.Status != order.StatusCancelRequested {
		t.Fatalf("status after initiate: got %s", o.Status)
	}

	// Only a settler may finalize.
	if err := f.gateway.FinalizeCancel(f.user, o.ID, 12); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("owner finalize: got %v, want ErrUnauthorized", err)
	}
	if err := f.gateway.FinalizeCancel(f.settler, o.ID, 12); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if o.Status != order.StatusCancelled {
		t.Errorf("status: got %s, want cancelled", o.Status)
	}

	// Refund equals the hold exactly.
	if got := f.tokens.BalanceOf(f.user); got != 10_000*p {
		t.Errorf("wallet after refund: got %d, want %d", got, 10_000*p)
	}
	if got := f.tokens.HeldBalance(f.user); got != 0 {
		t.Errorf("held after refund: got %d, want 0", got)
	}
}

func TestCancel_TerminalIsImmutable(t *testing.T) {
	f := newFixture(t)
	o, _ := f.gateway.Submit(f.user, openParams(220*p), 10)
	f.gateway.InitiateCancel(f.user, o.ID)
	f.gateway.FinalizeCancel(f.settler, o.ID, 11)

	if err := f.gateway.InitiateCancel(f.user, o.ID); !errors.Is(err, order.ErrNotPending) {
		t.Errorf("initiate on cancelled: got %v, want ErrNotPending", err)
	}
	if err := f.gateway.AdminCancel(f.admin, o.ID, 12); !errors.Is(err, order.ErrNotPending) {
		t.Errorf("admin cancel on cancelled: got %v, want ErrNotPending", err)
	}
	if got := f.tokens.BalanceOf(f.user); got != 10_000*p {
		t.Errorf("double refund: got %d, want %d", got, 10_000*p)
	}
}

func TestAdminCancel_BypassesRequestFlag(t *testing.T) {
	f := newFixture(t)
	o, _ := f.gateway.Submit(f.user, openParams(220*p), 10)

	if err := f.gateway.AdminCancel(f.user, o.ID, 11); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("non-admin cancel: got %v, want ErrUnauthorized", err)
	}
	if err := f.gateway.AdminCancel(f.admin, o.ID, 11); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if o.Status != order.StatusCancelled {
		t.Errorf("status: got %s, want cancelled", o.Status)
	}
	if got := f.tokens.BalanceOf(f.user); got != 10_000*p {
		t.Errorf("refund: got %d, want %d", got, 10_000*p)
	}
}
