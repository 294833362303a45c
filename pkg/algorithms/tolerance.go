package algorithms

import "math"

// Tolerance decides when two path costs count as equal: |a-b| <= max(Abs, b*Rel).
type Tolerance struct {
	Abs float64 `yaml:"abs" json:"abs"`
	Rel float64 `yaml:"rel" json:"rel"`
}

// DefaultTolerance is the tie margin used when none is configured.
var DefaultTolerance = Tolerance{Abs: 1e-4, Rel: 1e-6}

// Equal reports whether cost ties with min.
func (t Tolerance) Equal(cost, min float64) bool {
	return math.Abs(cost-min) <= math.Max(t.Abs, min*t.Rel)
}

// Less reports whether cost is strictly below min beyond tolerance.
func (t Tolerance) Less(cost, min float64) bool {
	return cost < min && !t.Equal(cost, min)
}
