package engine

import (
	"strconv"

	"github.com/rs/zerolog"

	"SynthLedger/internal/escrow"
	"SynthLedger/internal/ledger"
	"SynthLedger/internal/market"
	fpmath "SynthLedger/internal/math"
	"SynthLedger/internal/order"
	"SynthLedger/internal/position"
	"SynthLedger/internal/rates"
)

// Inputs are the settlement parameters supplied by the price source.
type Inputs struct {
	Price           int64 // Precision-scaled settlement price
	UnadjustedPrice int64 // raw feed price before spread adjustment, audit only
	Spread          int64 // Precision-scaled
	PositionTime    int64 // epoch seconds, the settlement "now"
	// LiquidationTime optionally overrides the interest accrual end for
	// liquidations detected in the past. Zero means PositionTime.
	LiquidationTime int64
}

// Outcome classifies what a settlement did.
type Outcome int32

const (
	OutcomeOpened Outcome = iota
	OutcomePartialClose
	OutcomeClosed
	OutcomeRollover
	OutcomeLiquidated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOpened:
		return "opened"
	case OutcomePartialClose:
		return "partial_close"
	case OutcomeClosed:
		return "closed"
	case OutcomeRollover:
		return "rollover"
	case OutcomeLiquidated:
		return "liquidated"
	default:
		return "unknown"
	}
}

// Result reports the effects of one settlement.
type Result struct {
	OrderID         int64
	Outcome         Outcome
	ClosedShares    int64
	OpenedShares    int64
	Payout          int64 // gross close proceeds before the minting limiter
	Minted          int64
	Escrowed        int64
	InterestCharged int64
	StakeConsumed   int64
	Position        position.Position // post-settlement copy
}

// Engine runs the settlement algorithm. It is the sole writer of
// positions; every failure leaves orders, positions and balances
// untouched. Single-threaded by construction.
type Engine struct {
	positions *position.Book
	markets   *market.Controller
	schedule  *rates.Schedule
	tokens    ledger.TokenLedger
	limiter   *escrow.Limiter
	log       zerolog.Logger
}

func New(positions *position.Book, markets *market.Controller, schedule *rates.Schedule, tokens ledger.TokenLedger, limiter *escrow.Limiter, log zerolog.Logger) *Engine {
	return &Engine{
		positions: positions,
		markets:   markets,
		schedule:  schedule,
		tokens:    tokens,
		limiter:   limiter,
		log:       log.With().Str("component", "engine").Logger(),
	}
}

// Settle executes one order against the supplied price. The order must
// be live; CancelRequested orders are still settleable since a cancel
// request only authorizes cancellation. Authorization of the caller
// happens in the Manager.
func (e *Engine) Settle(o *order.Order, in Inputs) (*Result, error) {
	if o.Status.Terminal() {
		return nil, order.ErrNotPending
	}
	now := in.PositionTime
	if err := checkPreconditions(o, in.Price, now); err != nil {
		return nil, err
	}

	pos := e.positions.GetOrCreate(o.User, o.Market)
	price := in.Price
	spread := in.Spread

	// Market gate. A deactivated market admits only a full close at the
	// frozen delisting price, with no spread applied.
	if !e.markets.IsActive(o.Market) {
		frozen, err := e.markets.FrozenPrice(o.Market)
		if err != nil {
			return nil, ErrMarketInactiveCannotTrade
		}
		if o.OpenAmount > 0 {
			return nil, ErrMarketInactiveCannotTrade
		}
		if pos.IsFlat() || o.CloseShares < pos.Shares() {
			return nil, ErrRequiresFullClose
		}
		price = frozen
		spread = 0
	}

	// Rollover policy: opening against the held direction requires the
	// close leg to consume the whole position.
	if o.OpenAmount > 0 && !pos.IsFlat() && o.Direction == pos.Direction().Opposite() {
		if o.CloseShares < pos.Shares() {
			return nil, ErrPartialCloseRollover
		}
	}
	if o.CloseShares > 0 && pos.IsFlat() {
		return nil, ErrNothingToClose
	}

	staged := pos.Clone()
	res := &Result{OrderID: o.ID, Outcome: OutcomeOpened}

	// Close leg: accrue interest on the existing position, value the
	// closed shares, detect liquidation.
	if o.CloseShares > 0 {
		closeShares := o.CloseShares
		if closeShares > staged.Shares() {
			closeShares = staged.Shares()
		}
		full := closeShares == staged.Shares()

		val := e.valueClose(staged, price, spread, now, in.LiquidationTime)
		if val.Liquidated {
			res.Outcome = OutcomeLiquidated
			res.ClosedShares = staged.Shares()
			res.InterestCharged = mulShares(val.InterestPerShare, staged.Shares())
			staged.Zero()
		} else {
			res.ClosedShares = closeShares
			res.InterestCharged = mulShares(val.InterestPerShare, closeShares)
			res.Payout = mulShares(val.ValuePerShare, closeShares)
			if full {
				res.Outcome = OutcomeClosed
				staged.Zero()
			} else {
				// Partial closes of the same direction keep the entry
				// fields and the accrual anchor.
				res.Outcome = OutcomePartialClose
				if staged.Direction() == position.DirectionLong {
					staged.LongShares -= closeShares
				} else {
					staged.ShortShares -= closeShares
				}
				staged.Version++
			}
		}
	}

	// Open leg: size the new shares, then consume the stake.
	var openShares, stake int64
	if o.OpenAmount > 0 {
		if o.AmountInShares {
			openShares = o.OpenAmount
			stake = mulShares(position.EffectiveEntryPrice(price, spread, o.Leverage), openShares)
		} else {
			openShares = position.SharesForAmount(o.OpenAmount, price, spread, o.Leverage)
			if openShares == 0 {
				return nil, ErrAmountTooSmall
			}
			stake = o.OpenAmount
		}
	}

	// Token movements happen after every check has passed. The stake
	// burn is the only fallible call and runs first, so a failure here
	// still leaves all state untouched.
	ref := orderRef(o.ID)
	if stake > 0 {
		if o.HoldAmount > 0 {
			if err := e.tokens.ConsumeHold(o.User, o.HoldAmount, ref, now); err != nil {
				return nil, err
			}
		} else {
			if err := e.tokens.Burn(o.User, stake, ref, now); err != nil {
				return nil, err
			}
		}
		res.StakeConsumed = stake
	}
	if res.Payout > 0 {
		out, err := e.limiter.Payout(o.User, res.Payout, ref, now)
		if err != nil {
			return nil, err
		}
		res.Minted = out.Minted
		res.Escrowed = out.Escrowed
	}

	// Apply the open leg to the staged position.
	if openShares > 0 {
		e.applyOpen(staged, o.Direction, openShares, price, spread, o.Leverage, now)
		res.OpenedShares = openShares
		if res.Outcome == OutcomeClosed {
			res.Outcome = OutcomeRollover
		}
	}

	e.positions.Set(staged)
	o.Status = order.StatusSettled
	o.ClosedAt = now
	res.Position = *staged

	e.log.Info().
		Int64("order_id", o.ID).
		Str("market", o.Market).
		Str("outcome", res.Outcome.String()).
		Int64("closed_shares", res.ClosedShares).
		Int64("opened_shares", res.OpenedShares).
		Int64("minted", res.Minted).
		Int64("escrowed", res.Escrowed).
		Msg("order settled")
	return res, nil
}

// valueClose accrues margin interest on the existing position and
// values one share at the settlement price.
func (e *Engine) valueClose(pos *position.Position, price, spread, now, accrualEnd int64) position.CloseValuation {
	if accrualEnd == 0 {
		accrualEnd = now
	}
	inception := pos.LastUpdated
	if inception < e.schedule.DeployedAt() {
		inception = e.schedule.DeployedAt()
	}
	days := position.DaysHeld(inception, accrualEnd)
	avgRate := e.schedule.WeightedAverageRate(pos.LastUpdated, accrualEnd)
	interest := position.MarginInterestPerShare(pos.MeanEntryPrice, pos.MeanEntryLeverage, days, avgRate)
	return position.ValueClose(pos.Direction(), pos.MeanEntryPrice, pos.MeanEntryLeverage, price, spread, interest)
}

// applyOpen adds shares in the trade direction, blending the entry
// fields share-count-weighted and resetting the accrual anchor.
func (e *Engine) applyOpen(pos *position.Position, dir position.Direction, shares, price, spread, leverage, now int64) {
	if pos.IsFlat() {
		pos.MeanEntryPrice = price
		pos.MeanEntrySpread = spread
		pos.MeanEntryLeverage = leverage
	} else {
		pos.MeanEntryPrice, pos.MeanEntrySpread, pos.MeanEntryLeverage = position.BlendEntry(
			pos.Shares(), pos.MeanEntryPrice, pos.MeanEntrySpread, pos.MeanEntryLeverage,
			shares, price, spread, leverage,
		)
	}
	if dir == position.DirectionLong {
		pos.LongShares += shares
	} else {
		pos.ShortShares += shares
	}
	pos.LiquidationPrice = position.LiquidationPrice(dir, pos.MeanEntryPrice, pos.MeanEntryLeverage)
	pos.LastUpdated = now
	pos.Version++
}

func checkPreconditions(o *order.Order, price, now int64) error {
	if o.GoodFrom > 0 && now < o.GoodFrom {
		return ErrConditionsNotMet
	}
	if o.GoodUntil > 0 && now > o.GoodUntil {
		return ErrConditionsNotMet
	}
	// Both thresholds are independently mandatory when set.
	if o.PriceAbove > 0 && price < o.PriceAbove {
		return ErrConditionsNotMet
	}
	if o.PriceBelow > 0 && price > o.PriceBelow {
		return ErrConditionsNotMet
	}
	return nil
}

func mulShares(perShare, shares int64) int64 {
	return fpmath.MulDiv(perShare, shares, 1)
}

func orderRef(id int64) string {
	return "order-" + strconv.FormatInt(id, 10)
}
