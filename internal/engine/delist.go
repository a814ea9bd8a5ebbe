package engine

import (
	"sort"
)

// DelistReport is the outcome of one bounded delist pass.
type DelistReport struct {
	Closed    int
	Remaining int
	Complete  bool
}

// DelistMarket force-closes open positions in a deactivated market at
// the frozen price, at most budget positions per call. Exhausting the
// budget reports partial completion; the call is safe to repeat since
// already-closed positions drop out of the iteration.
func (e *Engine) DelistMarket(symbol string, budget int, now int64) (*DelistReport, error) {
	frozen, err := e.markets.FrozenPrice(symbol)
	if err != nil {
		return nil, err
	}
	if budget <= 0 {
		budget = 1
	}

	open := e.positions.OpenInMarket(symbol)
	// Deterministic order keeps repeated passes and state hashes stable.
	sort.Slice(open, func(i, j int) bool {
		return open[i].User.String() < open[j].User.String()
	})

	report := &DelistReport{}
	for _, pos := range open {
		if report.Closed >= budget {
			break
		}
		staged := pos.Clone()
		val := e.valueClose(staged, frozen, 0, now, 0)
		if !val.Liquidated {
			payout := mulShares(val.ValuePerShare, staged.Shares())
			if payout > 0 {
				ref := "delist-" + symbol + "-" + staged.User.String()
				if _, err := e.limiter.Payout(staged.User, payout, ref, now); err != nil {
					return report, err
				}
			}
		}
		staged.Zero()
		e.positions.Set(staged)
		report.Closed++
	}

	report.Remaining = len(open) - report.Closed
	report.Complete = report.Remaining == 0

	e.log.Info().
		Str("market", symbol).
		Int("closed", report.Closed).
		Int("remaining", report.Remaining).
		Msg("delist pass finished")

	if !report.Complete {
		return report, ErrDelistIncomplete
	}
	return report, nil
}
