package constraints

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

// Op is a composition comparison operator.
type Op string

const (
	OpGreater      Op = ">"
	OpLess         Op = "<"
	OpGreaterEqual Op = ">="
	OpLessEqual    Op = "<="
	OpEqual        Op = "=="
)

// ParseOp validates an operator string.
func ParseOp(s string) (Op, error) {
	switch op := Op(strings.TrimSpace(s)); op {
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual, OpEqual:
		return op, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperator, s)
	}
}

// Apply evaluates a op b. Equality is exact.
func (o Op) Apply(a, b float64) bool {
	switch o {
	case OpGreater:
		return a > b
	case OpLess:
		return a < b
	case OpGreaterEqual:
		return a >= b
	case OpLessEqual:
		return a <= b
	case OpEqual:
		return a == b
	default:
		return false
	}
}

// CompositionFilter compares one element's weight fraction against Val.
type CompositionFilter struct {
	Op  Op      `json:"op"`
	Val float64 `json:"val"`
}

// Range is an inclusive interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether min <= v <= max.
func (r Range) Contains(v float64) bool {
	return r.Min <= v && v <= r.Max
}

// Filters is the typed form of a query's filter mapping. Composition keys
// are normalized element symbols (see NormalizeKey).
type Filters struct {
	SteelType   *string                      `json:"steel_type,omitempty"`
	Composition map[string]CompositionFilter `json:"composition,omitempty"`
	Time        *Range                       `json:"time_range,omitempty"`
	Temperature *Range                       `json:"temperature_range,omitempty"`
	Hardness    *Range                       `json:"hardness_range,omitempty"`
}

// IsEmpty reports whether no filter is set.
func (f Filters) IsEmpty() bool {
	return f.SteelType == nil && len(f.Composition) == 0 &&
		f.Time == nil && f.Temperature == nil && f.Hardness == nil
}

// Elements returns the filtered element symbols in sorted order.
func (f Filters) Elements() []string {
	out := make([]string, 0, len(f.Composition))
	for k := range f.Composition {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Constraints expands the filters into per-node constraints in a fixed order:
// steel type, composition by element, then time, temperature and hardness ranges.
func (f Filters) Constraints() []Constraint {
	var out []Constraint
	if f.SteelType != nil {
		out = append(out, &SteelTypeConstraint{Want: *f.SteelType})
	}
	for _, elem := range f.Elements() {
		out = append(out, &CompositionConstraint{Element: elem, Filter: f.Composition[elem]})
	}
	if f.Time != nil {
		out = append(out, &RangeConstraint{Target: processgraph.KindTime, Range: *f.Time})
	}
	if f.Temperature != nil {
		out = append(out, &RangeConstraint{Target: processgraph.KindTemperature, Range: *f.Temperature})
	}
	if f.Hardness != nil {
		out = append(out, &RangeConstraint{Target: processgraph.KindHardness, Range: *f.Hardness})
	}
	return out
}

// String renders the filters for reports and error messages.
func (f Filters) String() string {
	if f.IsEmpty() {
		return "{}"
	}
	parts := make([]string, 0, len(f.Composition)+4)
	if f.SteelType != nil {
		parts = append(parts, fmt.Sprintf("steel_type=%q", *f.SteelType))
	}
	for _, elem := range f.Elements() {
		c := f.Composition[elem]
		parts = append(parts, fmt.Sprintf("%s %s %s", elem, c.Op, processgraph.FormatNumber(c.Val)))
	}
	for _, r := range []struct {
		name string
		r    *Range
	}{{"time_range", f.Time}, {"temperature_range", f.Temperature}, {"hardness_range", f.Hardness}} {
		if r.r != nil {
			parts = append(parts, fmt.Sprintf("%s=[%s, %s]", r.name,
				processgraph.FormatNumber(r.r.Min), processgraph.FormatNumber(r.r.Max)))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
