package engine

import "errors"

var (
	// ErrConditionsNotMet: a time window or price threshold precondition
	// failed. The order stays Pending and retryable.
	ErrConditionsNotMet = errors.New("engine: settlement conditions not met")

	// ErrMarketInactiveCannotTrade: the order carries an open leg or
	// otherwise trades on a deactivated market.
	ErrMarketInactiveCannotTrade = errors.New("engine: market is deactivated, cannot trade")

	// ErrRequiresFullClose: a deactivated market admits only full closes
	// at the frozen price.
	ErrRequiresFullClose = errors.New("engine: deactivated market requires a full close")

	// ErrPartialCloseRollover: an order may not leave a residual in one
	// direction while opening the opposite one.
	ErrPartialCloseRollover = errors.New("engine: cannot partially close a position and open the opposite direction")

	// ErrNothingToClose: the close leg references a flat position.
	ErrNothingToClose = errors.New("engine: no open position to close")

	// ErrAmountTooSmall: the open amount buys zero whole shares at the
	// effective price. Retryable, the price may move.
	ErrAmountTooSmall = errors.New("engine: open amount below one share at effective price")

	// ErrStaleEngineVersion: the order was created against a prior
	// engine version and must be re-pointed or re-submitted.
	ErrStaleEngineVersion = errors.New("engine: order was created against a prior engine version")

	// ErrDelistIncomplete reports partial completion of a bounded-batch
	// delist. The call must be repeated to finish.
	ErrDelistIncomplete = errors.New("engine: delist budget exhausted, partial completion")
)
