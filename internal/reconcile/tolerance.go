package reconcile

import "math"

// Basis selects how the tolerance is computed.
type Basis string

// Tolerance bases.
const (
	// BasisAbsolute treats Value as a fixed amount in cents.
	BasisAbsolute Basis = "absolute"
	// BasisPercent treats Value as a percentage of the larger compared amount.
	BasisPercent Basis = "percent"
)

// Tolerance defines the allowed discrepancy between two amounts before they
// are considered mismatched.
type Tolerance struct {
	Basis Basis   `json:"basis"`
	Value float64 `json:"value"`
	// Epsilon is a fixed currency floor in cents applied under the percent
	// basis, so near-zero amounts still tolerate rounding noise.
	Epsilon int64 `json:"epsilon"`
}

// DefaultTolerance is 1% of the larger amount with a 50 cent floor.
func DefaultTolerance() Tolerance {
	return Tolerance{
		Basis:   BasisPercent,
		Value:   1.0,
		Epsilon: 50,
	}
}

// Effective computes the tolerance in cents for a comparison whose larger
// amount is larger. A delta equal to the returned value is within tolerance.
func (t Tolerance) Effective(larger int64) int64 {
	switch t.Basis {
	case BasisAbsolute:
		return int64(math.Round(t.Value))
	default:
		pct := int64(math.Round(float64(larger) * t.Value / 100))
		if pct < t.Epsilon {
			return t.Epsilon
		}
		return pct
	}
}
