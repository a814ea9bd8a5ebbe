package ledger

import (
	"fmt"
	"sort"
)

// BalanceTracker holds the in-memory balance of every account touched by
// the ledger. Not thread-safe: mutation happens only inside the
// single-threaded settlement core.
//
// External boundary accounts may go negative (the mint sink runs an
// ever-growing deficit matching total minted supply). User and system
// accounts never may.
type BalanceTracker struct {
	balances map[AccountKey]int64
}

func NewBalanceTracker() *BalanceTracker {
	return &BalanceTracker{balances: make(map[AccountKey]int64)}
}

// Balance returns the current balance of an account, zero if untouched.
func (bt *BalanceTracker) Balance(key AccountKey) int64 {
	return bt.balances[key]
}

// CanApply checks that every journal in the batch can be applied in
// order without driving a non-external account negative. It simulates
// against a scratch overlay and leaves the tracker untouched.
func (bt *BalanceTracker) CanApply(batch *Batch) error {
	overlay := make(map[AccountKey]int64, len(batch.Journals))
	get := func(key AccountKey) int64 {
		if v, ok := overlay[key]; ok {
			return v
		}
		return bt.balances[key]
	}
	for i, j := range batch.Journals {
		debited := get(j.Debit) - j.Amount
		if debited < 0 && j.Debit.Scope != AccountScopeExternal {
			return fmt.Errorf("journal %d (%s): insufficient balance on %s: have %d, need %d",
				i, j.Type, j.Debit.AccountPath(), get(j.Debit), j.Amount)
		}
		overlay[j.Debit] = debited
		overlay[j.Credit] = get(j.Credit) + j.Amount
	}
	return nil
}

// Apply commits a batch. Callers must have validated it with CanApply;
// Apply itself never leaves the tracker half-updated because journals
// are pure additions and subtractions.
func (bt *BalanceTracker) Apply(batch *Batch) {
	for _, j := range batch.Journals {
		bt.balances[j.Debit] -= j.Amount
		bt.balances[j.Credit] += j.Amount
	}
}

// GlobalSum returns the sum over every account including the external
// boundary. A correctly operating ledger always sums to zero.
func (bt *BalanceTracker) GlobalSum() int64 {
	var sum int64
	for _, v := range bt.balances {
		sum += v
	}
	return sum
}

// CirculatingSupply is the token total held outside the external
// boundary: the negated sum of the mint and burn sinks.
func (bt *BalanceTracker) CirculatingSupply() int64 {
	mint := bt.balances[NewExternalAccountKey(SubTypeExternalMint)]
	burn := bt.balances[NewExternalAccountKey(SubTypeExternalBurn)]
	return -(mint + burn)
}

// Snapshot returns a copy of all non-zero balances.
func (bt *BalanceTracker) Snapshot() map[AccountKey]int64 {
	out := make(map[AccountKey]int64, len(bt.balances))
	for k, v := range bt.balances {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// Restore replaces all balances from a snapshot.
func (bt *BalanceTracker) Restore(snapshot map[AccountKey]int64) {
	bt.balances = make(map[AccountKey]int64, len(snapshot))
	for k, v := range snapshot {
		bt.balances[k] = v
	}
}

// CanonicalBytes serializes all non-zero balances in a deterministic
// order for state hashing.
func (bt *BalanceTracker) CanonicalBytes() []byte {
	keys := make([]AccountKey, 0, len(bt.balances))
	for k, v := range bt.balances {
		if v != 0 {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Scope != b.Scope {
			return a.Scope < b.Scope
		}
		if a.EntityID != b.EntityID {
			return string(a.EntityID[:]) < string(b.EntityID[:])
		}
		return a.SubType < b.SubType
	})

	buf := make([]byte, 0, len(keys)*26)
	for _, k := range keys {
		buf = append(buf, byte(k.Scope))
		buf = append(buf, k.EntityID[:]...)
		buf = append(buf, byte(k.SubType))
		v := bt.balances[k]
		buf = append(buf,
			byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
			byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
	}
	return buf
}
