package position_test

import (
	fpmath "SynthLedger/internal/math"
	"SynthLedger/internal/position"
	"testing"
)

const p = fpmath.Precision

func TestDaysHeld(t *testing.T) {
	cases := []struct {
		inception, now, want int64
	}{
		{0, 0, 0},
		{0, 86_399, 0},
		{0, 86_400, 1},
		{0, 100 * 86_400, 100},
		{1000, 500, 0}, // clock skew: never negative
	}
	for _, c := range cases {
		if got := position.DaysHeld(c.inception, c.now); got != c.want {
			t.Errorf("DaysHeld(%d, %d): got %d, want %d", c.inception, c.now, got, c.want)
		}
	}
}

func TestMarginInterestPerShare_SpecExample(t *testing.T) {
	// entry 300, leverage 2x, rate 0.00015/day, 99 whole days held:
	// 300 * 1 * 100 * 0.00015 = 4.5 per share.
	got := position.MarginInterestPerShare(300*p, 2*p, 99, 15000)
	want := int64(450_000_000) // 4.5 scaled
	if got != want {
		t.Errorf("interest per share: got %d, want %d", got, want)
	}
}

func TestMarginInterestPerShare_OneXAccruesNothing(t *testing.T) {
	if got := position.MarginInterestPerShare(300*p, p, 500, 15000); got != 0 {
		t.Errorf("1x leverage interest: got %d, want 0", got)
	}
}

func TestMarginInterestPerShare_MonotonicInDays(t *testing.T) {
	prev := int64(-1)
	for days := int64(0); days < 50; days++ {
		got := position.MarginInterestPerShare(300*p, 2*p, days, 15000)
		if got < prev {
			t.Fatalf("interest decreased at days=%d: %d < %d", days, got, prev)
		}
		prev = got
	}
}

func TestValueClose_LongLoss(t *testing.T) {
	// Long entry 300 at 2x closed at 200 with spread 0.01:
	// base = 300 + (200-300)*2 = 100; minus spread*2 = 0.02 -> 99.98
	v := position.ValueClose(position.DirectionLong, 300*p, 2*p, 200*p, 1_000_000, 0)
	if v.Liquidated {
		t.Fatal("should not be liquidated")
	}
	want := int64(99_98000000)
	if v.ValuePerShare != want {
		t.Errorf("long close value: got %d, want %d", v.ValuePerShare, want)
	}
}

func TestValueClose_ShortSymmetric(t *testing.T) {
	// Short entry 200 at 2x closed at 300: base = 200 + (200-300)*2 = 0 -> liquidated.
	v := position.ValueClose(position.DirectionShort, 200*p, 2*p, 300*p, 1_000_000, 0)
	if !v.Liquidated {
		t.Fatal("short should be liquidated when price doubles the leveraged move")
	}
	if v.ValuePerShare != 0 {
		t.Errorf("liquidated value: got %d, want 0", v.ValuePerShare)
	}

	// Short gain: entry 300 closed at 200: base = 300 + 100*2 = 500 - 0.02
	v = position.ValueClose(position.DirectionShort, 300*p, 2*p, 200*p, 1_000_000, 0)
	if v.Liquidated {
		t.Fatal("profitable short must not be liquidated")
	}
	if v.ValuePerShare != 499_98000000 {
		t.Errorf("short close value: got %d, want 49998000000", v.ValuePerShare)
	}
}

func TestValueClose_SpreadDiscountMonotoneInLeverage(t *testing.T) {
	prev := int64(1 << 62)
	for lev := int64(1); lev <= 10; lev++ {
		v := position.ValueClose(position.DirectionLong, 300*p, lev*p, 300*p, 1_000_000, 0)
		if v.ValuePerShare > prev {
			t.Fatalf("close value increased with leverage at %dx", lev)
		}
		prev = v.ValuePerShare
	}
}

func TestValueClose_InterestTriggersLiquidation(t *testing.T) {
	// base = 100; interest 100 wipes it out entirely.
	v := position.ValueClose(position.DirectionLong, 300*p, 2*p, 200*p, 1_000_000, 100*p)
	if !v.Liquidated {
		t.Error("interest exceeding base value should liquidate")
	}
}

func TestSharesForAmount_SpecExample(t *testing.T) {
	// 220 tokens at price 200, spread 0.01, 5x leverage:
	// effective price = (200 + 0.01*5)/5 = 40.01 -> floor(220/40.01) = 5
	got := position.SharesForAmount(220*p, 200*p, 1_000_000, 5*p)
	if got != 5 {
		t.Errorf("shares: got %d, want 5", got)
	}
}

func TestSharesForAmount_RoundsDown(t *testing.T) {
	// 219 tokens at effective price 40.01 -> 5.47 -> 5
	if got := position.SharesForAmount(219*p, 200*p, 1_000_000, 5*p); got != 5 {
		t.Errorf("shares: got %d, want 5", got)
	}
	// 40 tokens -> 0 shares (below one effective price unit)
	if got := position.SharesForAmount(40*p, 200*p, 1_000_000, 5*p); got != 0 {
		t.Errorf("shares: got %d, want 0", got)
	}
}

func TestEffectiveEntryPrice(t *testing.T) {
	got := position.EffectiveEntryPrice(200*p, 1_000_000, 5*p)
	want := int64(40_01000000) // 40.01
	if got != want {
		t.Errorf("effective price: got %d, want %d", got, want)
	}
}

func TestLiquidationPrice(t *testing.T) {
	// Long entry 300 at 2x -> 150; short entry 300 at 2x -> 450.
	if got := position.LiquidationPrice(position.DirectionLong, 300*p, 2*p); got != 150*p {
		t.Errorf("long liquidation: got %d, want %d", got, 150*p)
	}
	if got := position.LiquidationPrice(position.DirectionShort, 300*p, 2*p); got != 450*p {
		t.Errorf("short liquidation: got %d, want %d", got, 450*p)
	}
	// 1x long can only liquidate at zero.
	if got := position.LiquidationPrice(position.DirectionLong, 300*p, p); got != 0 {
		t.Errorf("1x long liquidation: got %d, want 0", got)
	}
}

func TestBlendEntry_ShareWeighted(t *testing.T) {
	price, spread, lev := position.BlendEntry(
		10, 300*p, 1_000_000, 2*p,
		10, 200*p, 3_000_000, 4*p,
	)
	if price != 250*p {
		t.Errorf("blended price: got %d, want %d", price, 250*p)
	}
	if spread != 2_000_000 {
		t.Errorf("blended spread: got %d, want 2000000", spread)
	}
	if lev != 3*p {
		t.Errorf("blended leverage: got %d, want %d", lev, 3*p)
	}
}

func TestPosition_DirectionInvariant(t *testing.T) {
	pos := &position.Position{LongShares: 10}
	if pos.Direction() != position.DirectionLong || pos.Shares() != 10 {
		t.Error("long position direction/shares mismatch")
	}
	pos = &position.Position{ShortShares: 5}
	if pos.Direction() != position.DirectionShort || pos.Shares() != 5 {
		t.Error("short position direction/shares mismatch")
	}
	pos.Zero()
	if !pos.IsFlat() || pos.Direction() != position.DirectionNone {
		t.Error("zeroed position must be flat")
	}
	if pos.Version != 1 {
		t.Errorf("Zero must bump version: got %d", pos.Version)
	}
}
