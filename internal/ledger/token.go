package ledger

import (
	"errors"

	"github.com/google/uuid"
)

// ErrInsufficientBalance is returned when a debit would drive a user or
// system account negative.
var ErrInsufficientBalance = errors.New("ledger: insufficient balance")

// TokenLedger is the settlement token interface the gateway and engine
// operate against. Amounts are Precision-scaled and always positive.
//
// Hold moves wallet funds into the user's order-hold account when an
// order is accepted; ReleaseHold refunds a cancelled order and
// ConsumeHold burns the held stake when the order opens a position.
type TokenLedger interface {
	Transfer(from, to uuid.UUID, amount int64, reference string, at int64) error
	Mint(to uuid.UUID, amount int64, reference string, at int64) error
	Burn(from uuid.UUID, amount int64, reference string, at int64) error
	BalanceOf(user uuid.UUID) int64

	Hold(user uuid.UUID, amount int64, reference string, at int64) error
	ReleaseHold(user uuid.UUID, amount int64, reference string, at int64) error
	ConsumeHold(user uuid.UUID, amount int64, reference string, at int64) error
	HeldBalance(user uuid.UUID) int64
}

// JournalLedger implements TokenLedger on top of the double-entry
// tracker. Every operation produces exactly one journal, validated and
// applied atomically, and retained in a tail the persistence layer
// drains after each event.
type JournalLedger struct {
	tracker   *BalanceTracker
	validator *InvariantValidator
	tail      []Batch
}

func NewJournalLedger(tracker *BalanceTracker) *JournalLedger {
	return &JournalLedger{
		tracker:   tracker,
		validator: NewInvariantValidator(tracker),
	}
}

func (l *JournalLedger) Tracker() *BalanceTracker { return l.tracker }

func (l *JournalLedger) apply(jt JournalType, debit, credit AccountKey, amount int64, reference string, at int64) error {
	batch := &Batch{EventID: uuid.New()}
	batch.Append(NewJournal(jt, debit, credit, amount, reference, at))
	if err := l.validator.ValidateBatch(batch); err != nil {
		if debit.Scope != AccountScopeExternal && l.tracker.Balance(debit) < amount {
			return ErrInsufficientBalance
		}
		return err
	}
	l.tracker.Apply(batch)
	l.tail = append(l.tail, *batch)
	return nil
}

// Transfer moves tokens wallet to wallet.
func (l *JournalLedger) Transfer(from, to uuid.UUID, amount int64, reference string, at int64) error {
	return l.apply(JournalTypeTransfer,
		NewUserAccountKey(from, SubTypeWallet),
		NewUserAccountKey(to, SubTypeWallet),
		amount, reference, at)
}

// Mint creates tokens in a user wallet, drawn from the mint sink.
func (l *JournalLedger) Mint(to uuid.UUID, amount int64, reference string, at int64) error {
	return l.apply(JournalTypePayoutMint,
		NewExternalAccountKey(SubTypeExternalMint),
		NewUserAccountKey(to, SubTypeWallet),
		amount, reference, at)
}

// Burn destroys tokens from a user wallet into the burn sink.
func (l *JournalLedger) Burn(from uuid.UUID, amount int64, reference string, at int64) error {
	return l.apply(JournalTypeStakeBurn,
		NewUserAccountKey(from, SubTypeWallet),
		NewExternalAccountKey(SubTypeExternalBurn),
		amount, reference, at)
}

// BalanceOf returns the free wallet balance.
func (l *JournalLedger) BalanceOf(user uuid.UUID) int64 {
	return l.tracker.Balance(NewUserAccountKey(user, SubTypeWallet))
}

// Hold reserves wallet funds against a pending order.
func (l *JournalLedger) Hold(user uuid.UUID, amount int64, reference string, at int64) error {
	return l.apply(JournalTypeOrderHold,
		NewUserAccountKey(user, SubTypeWallet),
		NewUserAccountKey(user, SubTypeOrderHold),
		amount, reference, at)
}

// ReleaseHold returns reserved funds to the wallet on cancellation.
func (l *JournalLedger) ReleaseHold(user uuid.UUID, amount int64, reference string, at int64) error {
	return l.apply(JournalTypeOrderRefund,
		NewUserAccountKey(user, SubTypeOrderHold),
		NewUserAccountKey(user, SubTypeWallet),
		amount, reference, at)
}

// ConsumeHold burns reserved funds when the order they back settles
// into an open position.
func (l *JournalLedger) ConsumeHold(user uuid.UUID, amount int64, reference string, at int64) error {
	return l.apply(JournalTypeStakeBurn,
		NewUserAccountKey(user, SubTypeOrderHold),
		NewExternalAccountKey(SubTypeExternalBurn),
		amount, reference, at)
}

// HeldBalance returns the user's reserved order funds.
func (l *JournalLedger) HeldBalance(user uuid.UUID) int64 {
	return l.tracker.Balance(NewUserAccountKey(user, SubTypeOrderHold))
}

// TakeBatches drains the journal tail for persistence.
func (l *JournalLedger) TakeBatches() []Batch {
	out := l.tail
	l.tail = nil
	return out
}
