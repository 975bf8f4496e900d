package agent

import (
	"math"
	"math/rand"
	"sort"

	"github.com/shopspring/decimal"
)

// PrivateValue is the classical zero-intelligence marginal-value curve:
// 2*MaxPos i.i.d. draws from Normal(0, variance), sorted descending, so
// the marginal value of moving toward a long position strictly falls
// and the marginal value of moving toward a short position strictly
// rises.
type PrivateValue struct {
	MaxPos int64
	values []float64
}

// NewPrivateValue draws the curve deterministically from r.
func NewPrivateValue(maxPos int64, variance float64, r *rand.Rand) *PrivateValue {
	n := int(2 * maxPos)
	dev := 0.0
	if variance > 0 {
		dev = math.Sqrt(variance)
	}
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = r.NormFloat64() * dev
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(vals)))
	return &PrivateValue{MaxPos: maxPos, values: vals}
}

// Value returns the marginal value of a trade at the given position,
// on the given side.
func (p *PrivateValue) Value(pos int64, isBuy bool) decimal.Decimal {
	idx := pos + p.MaxPos
	if !isBuy {
		idx--
	}
	n := int64(len(p.values))
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return decimal.NewFromFloat(p.values[idx])
}
