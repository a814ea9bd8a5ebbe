package math

import (
	"math/big"
	"sync"
)

// Precision is the global fixed-point scale. Prices, token amounts, spreads,
// leverage and interest rates are all int64 values scaled by 1e8
// (leverage Precision = 1x). Share counts are whole int64 units.
const Precision int64 = 100_000_000

// SecondsPerDay is the accrual day used for margin interest.
const SecondsPerDay int64 = 86_400

var intPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt() *big.Int {
	return intPool.Get().(*big.Int)
}

func putInt(v *big.Int) {
	v.SetInt64(0)
	intPool.Put(v)
}

// Mul performs a * b using big.Int to prevent overflow. The result must be
// released with PutInt, or fed into Div which releases it.
func Mul(a, b int64) *big.Int {
	result := getInt()
	result.Mul(big.NewInt(a), big.NewInt(b))
	return result
}

// PutInt returns an intermediate value to the pool.
func PutInt(v *big.Int) { putInt(v) }

// Div divides numerator by denominator rounding toward zero and releases
// the numerator back to the pool.
func Div(numerator *big.Int, denominator int64) int64 {
	quotient := getInt()
	quotient.Quo(numerator, big.NewInt(denominator))
	result := quotient.Int64()
	putInt(quotient)
	putInt(numerator)
	return result
}

// MulDiv computes a * b / c with an int128 intermediate, truncating.
func MulDiv(a, b, c int64) int64 {
	return Div(Mul(a, b), c)
}

// ScaleMul multiplies two Precision-scaled values: a * b / Precision.
func ScaleMul(a, b int64) int64 {
	return MulDiv(a, b, Precision)
}

// ScaleDiv divides two Precision-scaled values: a * Precision / b.
func ScaleDiv(a, b int64) int64 {
	return MulDiv(a, Precision, b)
}

// WeightedAverage computes the weight-scaled average of two fixed-point
// values: (w1*v1 + w2*v2) / (w1 + w2), truncating. Weights are share
// counts, so doubling a position with an equal-size new entry lands exactly
// on the midpoint while unequal share counts do not.
func WeightedAverage(w1, v1, w2, v2 int64) int64 {
	if w1+w2 == 0 {
		return 0
	}
	if w1 == 0 {
		return v2
	}
	if w2 == 0 {
		return v1
	}
	term1 := Mul(w1, v1)
	term2 := Mul(w2, v2)
	sum := getInt()
	sum.Add(term1, term2)
	putInt(term1)
	putInt(term2)
	return Div(sum, w1+w2)
}

// ClampLeverage floors a leverage at 1x. Valuation and interest never
// operate below 1x even if a stored position predates leverage checks.
func ClampLeverage(leverage int64) int64 {
	if leverage < Precision {
		return Precision
	}
	return leverage
}
