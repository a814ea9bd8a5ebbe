package position

import (
	fpmath "SynthLedger/internal/math"
)

// Pure share valuation math. All prices, spreads, leverages, rates and token
// amounts are Precision-scaled int64; share counts are whole int64.
//
// A share's margin cost at entry is price/leverage plus the leveraged
// spread; its close value is the entry price plus the leveraged price move,
// discounted by the leveraged spread and by accrued margin interest.

// DaysHeld returns whole days (floor) between inception and now, never
// negative.
func DaysHeld(inception, now int64) int64 {
	if now <= inception {
		return 0
	}
	return (now - inception) / fpmath.SecondsPerDay
}

// MarginInterestPerShare computes the per-share interest charge:
// entry * (leverage - 1x) * (daysHeld + 1) * avgRate, with avgRate a
// Precision-scaled per-day rate. Leverage at or below 1x accrues nothing.
func MarginInterestPerShare(entry, leverage, daysHeld, avgRate int64) int64 {
	leverage = fpmath.ClampLeverage(leverage)
	if leverage == fpmath.Precision || avgRate == 0 {
		return 0
	}
	notional := fpmath.ScaleMul(entry, leverage-fpmath.Precision)
	return fpmath.MulDiv(notional, (daysHeld+1)*avgRate, fpmath.Precision)
}

// CloseValuation is the result of valuing a close at a settlement price.
type CloseValuation struct {
	ValuePerShare    int64 // Precision-scaled payout per closed share
	InterestPerShare int64
	Liquidated       bool // price crossed the leverage-scaled threshold
}

// ValueClose values one share of an open position at the settlement price.
// Long: base = entry + (price-entry)*lev. Short: base = entry +
// (entry-price)*lev. If base minus interest is non-positive the position is
// liquidated and worth nothing. Otherwise the leveraged spread and interest
// are deducted, floored at zero.
func ValueClose(dir Direction, entry, leverage, price, spread, interestPerShare int64) CloseValuation {
	leverage = fpmath.ClampLeverage(leverage)

	var move int64
	if dir == DirectionLong {
		move = price - entry
	} else {
		move = entry - price
	}
	base := entry + fpmath.ScaleMul(move, leverage)

	if base-interestPerShare <= 0 {
		return CloseValuation{ValuePerShare: 0, InterestPerShare: interestPerShare, Liquidated: true}
	}

	value := base - fpmath.ScaleMul(spread, leverage) - interestPerShare
	if value < 0 {
		value = 0
	}
	return CloseValuation{ValuePerShare: value, InterestPerShare: interestPerShare}
}

// EffectiveEntryPrice is the margin cost per share at open: the market
// price plus the leveraged spread, scaled down by leverage.
func EffectiveEntryPrice(price, spread, leverage int64) int64 {
	leverage = fpmath.ClampLeverage(leverage)
	gross := price + fpmath.ScaleMul(spread, leverage)
	return fpmath.MulDiv(gross, fpmath.Precision, leverage)
}

// SharesForAmount converts an opening token amount into a whole share
// count at the effective entry price, rounding down. The full amount is
// consumed as position margin; sub-share remainders are not refunded.
func SharesForAmount(amount, price, spread, leverage int64) int64 {
	leverage = fpmath.ClampLeverage(leverage)
	gross := price + fpmath.ScaleMul(spread, leverage)
	if gross <= 0 || amount <= 0 {
		return 0
	}
	scaled := fpmath.MulDiv(amount, leverage, gross)
	return scaled / fpmath.Precision
}

// LiquidationPrice returns the price at which the leveraged base value
// reaches zero: long entry*(lev-1x)/lev, short entry*(lev+1x)/lev.
func LiquidationPrice(dir Direction, entry, leverage int64) int64 {
	leverage = fpmath.ClampLeverage(leverage)
	perShare := fpmath.MulDiv(entry, fpmath.Precision, leverage)
	if dir == DirectionLong {
		return entry - perShare
	}
	return entry + perShare
}

// BlendEntry recomputes the share-count-weighted mean entry fields when
// adding shares to an existing position.
func BlendEntry(oldShares, oldPrice, oldSpread, oldLeverage, newShares, newPrice, newSpread, newLeverage int64) (price, spread, leverage int64) {
	price = fpmath.WeightedAverage(oldShares, oldPrice, newShares, newPrice)
	spread = fpmath.WeightedAverage(oldShares, oldSpread, newShares, newSpread)
	leverage = fpmath.WeightedAverage(oldShares, oldLeverage, newShares, newLeverage)
	return price, spread, leverage
}
