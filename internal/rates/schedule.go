package rates

import (
	fpmath "SynthLedger/internal/math"
	"fmt"
	"math/big"
)

// Entry is one row of the append-only interest rate table.
type Entry struct {
	Rate      int64 // Precision-scaled per-day rate (15000 = 0.00015/day)
	ValidFrom int64 // epoch seconds, strictly increasing across entries
	Active    bool
}

// Schedule is the append-only, time-ordered interest rate table. Rates are
// per-day and Precision-scaled. The schedule is seeded with the rate in
// effect at engine deployment; accrual intervals are clamped to that
// deployment timestamp.
type Schedule struct {
	entries    []Entry
	deployedAt int64
}

func NewSchedule(deployedAt int64, initialRate int64) *Schedule {
	return &Schedule{
		entries: []Entry{
			{Rate: initialRate, ValidFrom: deployedAt, Active: true},
		},
		deployedAt: deployedAt,
	}
}

// DeployedAt returns the engine deployment timestamp used for clamping.
func (s *Schedule) DeployedAt() int64 {
	return s.deployedAt
}

// Append adds a rate change. ValidFrom must be strictly after the last
// entry's ValidFrom.
func (s *Schedule) Append(rate int64, validFrom int64) error {
	if rate < 0 {
		return fmt.Errorf("negative rate %d", rate)
	}
	last := s.entries[len(s.entries)-1]
	if validFrom <= last.ValidFrom {
		return fmt.Errorf("validFrom %d not after last entry %d", validFrom, last.ValidFrom)
	}
	s.entries = append(s.entries, Entry{Rate: rate, ValidFrom: validFrom, Active: true})
	return nil
}

// SetActive toggles an entry. Deactivated entries are skipped when walking;
// the preceding active rate remains in effect over their interval.
func (s *Schedule) SetActive(index int, active bool) error {
	if index < 0 || index >= len(s.entries) {
		return fmt.Errorf("entry index %d out of range", index)
	}
	s.entries[index].Active = active
	return nil
}

// Entries returns a copy of the table (for snapshots and queries).
func (s *Schedule) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Restore replaces the table from a snapshot.
func (s *Schedule) Restore(deployedAt int64, entries []Entry) {
	s.deployedAt = deployedAt
	s.entries = make([]Entry, len(entries))
	copy(s.entries, entries)
}

// RateAt returns the rate in effect at ts: the active entry with the
// largest ValidFrom <= ts.
func (s *Schedule) RateAt(ts int64) int64 {
	rate := int64(0)
	for _, e := range s.entries {
		if !e.Active {
			continue
		}
		if e.ValidFrom > ts {
			break
		}
		rate = e.Rate
	}
	return rate
}

// WeightedAverageRate blends the schedule over [from, now], weighting each
// active entry's rate by the number of seconds it was in effect. The lower
// bound is clamped to the deployment timestamp. Returns the instantaneous
// rate when the interval is empty.
func (s *Schedule) WeightedAverageRate(from, now int64) int64 {
	if from < s.deployedAt {
		from = s.deployedAt
	}
	if now <= from {
		return s.RateAt(now)
	}

	sum := new(big.Int)
	var covered int64

	rate := int64(0)
	start := from
	for _, e := range s.entries {
		if !e.Active {
			continue
		}
		if e.ValidFrom <= from {
			rate = e.Rate
			continue
		}
		if e.ValidFrom >= now {
			break
		}
		seconds := e.ValidFrom - start
		if seconds > 0 {
			term := fpmath.Mul(rate, seconds)
			sum.Add(sum, term)
			fpmath.PutInt(term)
			covered += seconds
		}
		rate = e.Rate
		start = e.ValidFrom
	}

	// Tail: rate covering now is the entry with the largest ValidFrom <= now.
	seconds := now - start
	if seconds > 0 {
		term := fpmath.Mul(rate, seconds)
		sum.Add(sum, term)
		fpmath.PutInt(term)
		covered += seconds
	}

	if covered == 0 {
		return rate
	}
	return new(big.Int).Quo(sum, big.NewInt(covered)).Int64()
}
