package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalType classifies the business reason for a token movement.
type JournalType string

const (
	JournalTypeDeposit       JournalType = "DEPOSIT"
	JournalTypeWithdrawal    JournalType = "WITHDRAWAL"
	JournalTypeOrderHold     JournalType = "ORDER_HOLD"
	JournalTypeOrderRefund   JournalType = "ORDER_REFUND"
	JournalTypeStakeBurn     JournalType = "STAKE_BURN"
	JournalTypePayoutMint    JournalType = "PAYOUT_MINT"
	JournalTypeEscrowRelease JournalType = "ESCROW_RELEASE"
	JournalTypeTransfer      JournalType = "TRANSFER"
)

// Journal is one double-entry token movement: Amount tokens leave the
// debit account and arrive at the credit account. Amount is always
// positive.
type Journal struct {
	ID        uuid.UUID
	Type      JournalType
	Debit     AccountKey
	Credit    AccountKey
	Amount    int64
	Reference string // order or escrow record id the movement settles
	CreatedAt int64  // epoch seconds, event time
}

// Batch is the set of journals produced by settling a single event. It
// is applied atomically: either every journal commits or none do.
type Batch struct {
	EventID  uuid.UUID
	Journals []Journal
}

// Append adds a journal to the batch.
func (b *Batch) Append(j Journal) {
	b.Journals = append(b.Journals, j)
}

// Validate checks structural soundness: positive amounts and distinct
// debit/credit accounts on every journal.
func (b *Batch) Validate() error {
	for i, j := range b.Journals {
		if j.Amount <= 0 {
			return fmt.Errorf("journal %d (%s): non-positive amount %d", i, j.Type, j.Amount)
		}
		if j.Debit == j.Credit {
			return fmt.Errorf("journal %d (%s): debit and credit are the same account %s", i, j.Type, j.Debit.AccountPath())
		}
	}
	return nil
}

// NewJournal builds a journal with a fresh id.
func NewJournal(jt JournalType, debit, credit AccountKey, amount int64, reference string, at int64) Journal {
	return Journal{
		ID:        uuid.New(),
		Type:      jt,
		Debit:     debit,
		Credit:    credit,
		Amount:    amount,
		Reference: reference,
		CreatedAt: at,
	}
}
