package market

import (
	"errors"
	"sort"
)

var (
	ErrUnknownMarket = errors.New("market: unknown market")
	ErrInactive      = errors.New("market: market is not active")
	ErrStillActive   = errors.New("market: market is still active")
	ErrNoFrozenPrice = errors.New("market: no frozen price set for deactivated market")
)

// Market is one tradeable synthetic asset.
type Market struct {
	Symbol string
	Active bool
	// FrozenPrice is the terminal close price set after deactivation.
	// Zero means unset: no closes are possible on the deactivated
	// market until an operator freezes a price.
	FrozenPrice int64
	CreatedAt   int64
}

// Controller owns market lifecycle state. The gateway and engine
// consult it as a gate; only administrative calls mutate it. Not
// thread-safe: mutation happens only inside the single-threaded core.
type Controller struct {
	markets map[string]*Market
}

func NewController() *Controller {
	return &Controller{markets: make(map[string]*Market)}
}

// Create registers a new market in the active state.
func (c *Controller) Create(symbol string, at int64) *Market {
	m := &Market{Symbol: symbol, Active: true, CreatedAt: at}
	c.markets[symbol] = m
	return m
}

// Get returns the market or ErrUnknownMarket.
func (c *Controller) Get(symbol string) (*Market, error) {
	m := c.markets[symbol]
	if m == nil {
		return nil, ErrUnknownMarket
	}
	return m, nil
}

// IsActive reports whether the market exists and is tradeable.
func (c *Controller) IsActive(symbol string) bool {
	m := c.markets[symbol]
	return m != nil && m.Active
}

// Activate opens the market for trading and clears any frozen price.
func (c *Controller) Activate(symbol string) error {
	m, err := c.Get(symbol)
	if err != nil {
		return err
	}
	m.Active = true
	m.FrozenPrice = 0
	return nil
}

// Deactivate closes the market to new trades. Existing positions can
// only be fully closed, and only after a frozen price is set.
func (c *Controller) Deactivate(symbol string) error {
	m, err := c.Get(symbol)
	if err != nil {
		return err
	}
	m.Active = false
	return nil
}

// SetDeactivatedPrice freezes the terminal price for full closes on a
// deactivated market. Rejected while the market is still active.
func (c *Controller) SetDeactivatedPrice(symbol string, price int64) error {
	m, err := c.Get(symbol)
	if err != nil {
		return err
	}
	if m.Active {
		return ErrStillActive
	}
	m.FrozenPrice = price
	return nil
}

// FrozenPrice returns the terminal close price of a deactivated
// market, or ErrNoFrozenPrice when none has been set.
func (c *Controller) FrozenPrice(symbol string) (int64, error) {
	m, err := c.Get(symbol)
	if err != nil {
		return 0, err
	}
	if m.Active {
		return 0, ErrStillActive
	}
	if m.FrozenPrice == 0 {
		return 0, ErrNoFrozenPrice
	}
	return m.FrozenPrice, nil
}

// All returns every market sorted by symbol, for snapshots and the
// query API.
func (c *Controller) All() []*Market {
	out := make([]*Market, 0, len(c.markets))
	for _, m := range c.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Restore installs a market record during snapshot recovery.
func (c *Controller) Restore(m *Market) {
	c.markets[m.Symbol] = m
}
