package math_test

import (
	fpmath "SynthLedger/internal/math"
	"testing"
)

func TestMulDiv_NoOverflow(t *testing.T) {
	// 3e18 * 2 would overflow int64 without the int128 intermediate.
	a := int64(3_000_000_000_000_000_000)
	got := fpmath.MulDiv(a, 2, 4)
	want := int64(1_500_000_000_000_000_000)
	if got != want {
		t.Errorf("MulDiv: got %d, want %d", got, want)
	}
}

func TestMulDiv_TruncatesTowardZero(t *testing.T) {
	if got := fpmath.MulDiv(7, 1, 2); got != 3 {
		t.Errorf("7/2: got %d, want 3", got)
	}
	if got := fpmath.MulDiv(-7, 1, 2); got != -3 {
		t.Errorf("-7/2: got %d, want -3", got)
	}
}

func TestScaleMul(t *testing.T) {
	// 2.5 * 4.0 = 10.0 at 1e8 scale
	got := fpmath.ScaleMul(250_000_000, 400_000_000)
	if got != 1_000_000_000 {
		t.Errorf("ScaleMul: got %d, want 1000000000", got)
	}
}

func TestScaleDiv(t *testing.T) {
	// 10.0 / 4.0 = 2.5
	got := fpmath.ScaleDiv(1_000_000_000, 400_000_000)
	if got != 250_000_000 {
		t.Errorf("ScaleDiv: got %d, want 250000000", got)
	}
}

func TestWeightedAverage_EqualWeights(t *testing.T) {
	got := fpmath.WeightedAverage(10, 300_00000000, 10, 200_00000000)
	if got != 250_00000000 {
		t.Errorf("equal weights: got %d, want midpoint 25000000000", got)
	}
}

func TestWeightedAverage_UnequalWeights(t *testing.T) {
	// 10 shares at 300, 5 shares at 200 -> (3000+1000)/15 = 266.66...
	got := fpmath.WeightedAverage(10, 300_00000000, 5, 200_00000000)
	want := int64(266_66666666)
	if got != want {
		t.Errorf("unequal weights: got %d, want %d", got, want)
	}
}

func TestWeightedAverage_ZeroWeights(t *testing.T) {
	if got := fpmath.WeightedAverage(0, 100, 5, 200); got != 200 {
		t.Errorf("zero first weight: got %d, want 200", got)
	}
	if got := fpmath.WeightedAverage(5, 100, 0, 200); got != 100 {
		t.Errorf("zero second weight: got %d, want 100", got)
	}
	if got := fpmath.WeightedAverage(0, 100, 0, 200); got != 0 {
		t.Errorf("both zero: got %d, want 0", got)
	}
}

func TestClampLeverage(t *testing.T) {
	if got := fpmath.ClampLeverage(0); got != fpmath.Precision {
		t.Errorf("clamp 0: got %d, want %d", got, fpmath.Precision)
	}
	if got := fpmath.ClampLeverage(5 * fpmath.Precision); got != 5*fpmath.Precision {
		t.Errorf("clamp 5x: got %d, want unchanged", got)
	}
}
