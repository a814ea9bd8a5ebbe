package ledger

import (
	"fmt"
)

// InvariantValidator runs conservation checks against the tracker.
// Every token in a user or system account must be matched by a deficit
// on the external boundary; the grand total is always exactly zero.
type InvariantValidator struct {
	tracker *BalanceTracker
}

func NewInvariantValidator(tracker *BalanceTracker) *InvariantValidator {
	return &InvariantValidator{tracker: tracker}
}

// ValidateBatch checks a batch structurally and against current
// balances before it is applied.
func (v *InvariantValidator) ValidateBatch(batch *Batch) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("batch %s: %w", batch.EventID, err)
	}
	if err := v.tracker.CanApply(batch); err != nil {
		return fmt.Errorf("batch %s: %w", batch.EventID, err)
	}
	return nil
}

// ValidateGlobalBalance checks the zero-sum invariant over all accounts.
func (v *InvariantValidator) ValidateGlobalBalance() error {
	if sum := v.tracker.GlobalSum(); sum != 0 {
		return fmt.Errorf("global balance violated: accounts sum to %d, want 0", sum)
	}
	return nil
}
