package rates_test

import (
	"SynthLedger/internal/rates"
	"testing"
)

const day = int64(86_400)

func TestAppend_RequiresStrictlyIncreasingValidFrom(t *testing.T) {
	s := rates.NewSchedule(1_000_000, 15000)

	if err := s.Append(20000, 1_000_000); err == nil {
		t.Error("append at same validFrom should fail")
	}
	if err := s.Append(20000, 999_999); err == nil {
		t.Error("append before last validFrom should fail")
	}
	if err := s.Append(20000, 1_000_001); err != nil {
		t.Errorf("append after last validFrom: %v", err)
	}
}

func TestRateAt_LargestValidFromNotAfter(t *testing.T) {
	s := rates.NewSchedule(0, 100)
	s.Append(200, 1000)
	s.Append(300, 2000)

	cases := []struct {
		ts   int64
		want int64
	}{
		{0, 100},
		{999, 100},
		{1000, 200},
		{1999, 200},
		{2000, 300},
		{5000, 300},
	}
	for _, c := range cases {
		if got := s.RateAt(c.ts); got != c.want {
			t.Errorf("RateAt(%d): got %d, want %d", c.ts, got, c.want)
		}
	}
}

func TestWeightedAverageRate_SingleRate(t *testing.T) {
	s := rates.NewSchedule(0, 15000)
	got := s.WeightedAverageRate(0, 100*day)
	if got != 15000 {
		t.Errorf("constant schedule: got %d, want 15000", got)
	}
}

func TestWeightedAverageRate_TwoRatesEqualSpans(t *testing.T) {
	s := rates.NewSchedule(0, 10000)
	s.Append(20000, 50*day)

	// 50 days at 10000, 50 days at 20000 -> exactly 15000
	got := s.WeightedAverageRate(0, 100*day)
	if got != 15000 {
		t.Errorf("blended rate: got %d, want 15000", got)
	}
}

func TestWeightedAverageRate_UnequalSpans(t *testing.T) {
	s := rates.NewSchedule(0, 10000)
	s.Append(40000, 75*day)

	// 75 days at 10000, 25 days at 40000 -> (750000+1000000)/100 = 17500
	got := s.WeightedAverageRate(0, 100*day)
	if got != 17500 {
		t.Errorf("blended rate: got %d, want 17500", got)
	}
}

func TestWeightedAverageRate_ClampsToDeployment(t *testing.T) {
	s := rates.NewSchedule(1000*day, 15000)

	// Position inception before deployment: interval clamps to deployment.
	got := s.WeightedAverageRate(0, 1100*day)
	if got != 15000 {
		t.Errorf("clamped interval: got %d, want 15000", got)
	}
}

func TestWeightedAverageRate_EmptyInterval(t *testing.T) {
	s := rates.NewSchedule(0, 15000)
	s.Append(30000, 1000)

	if got := s.WeightedAverageRate(2000, 2000); got != 30000 {
		t.Errorf("empty interval falls back to instantaneous rate: got %d, want 30000", got)
	}
}

func TestWeightedAverageRate_SkipsInactiveEntries(t *testing.T) {
	s := rates.NewSchedule(0, 10000)
	s.Append(99999, 25*day)
	s.Append(20000, 50*day)
	s.SetActive(1, false)

	// Inactive middle entry: 10000 holds for the full first 50 days.
	got := s.WeightedAverageRate(0, 100*day)
	if got != 15000 {
		t.Errorf("inactive entry skipped: got %d, want 15000", got)
	}
}

func TestWeightedAverageRate_RateChangeMidInterval(t *testing.T) {
	s := rates.NewSchedule(0, 0)
	s.Append(15000, 10*day)

	// First 10 days at 0, next 30 at 15000 -> 11250
	got := s.WeightedAverageRate(0, 40*day)
	if got != 11250 {
		t.Errorf("mid-interval change: got %d, want 11250", got)
	}
}
