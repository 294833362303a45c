package constraints

import (
	"fmt"
	"math"

	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

// SteelTypeConstraint keeps the steel whose name matches Want, ignoring case.
type SteelTypeConstraint struct {
	Want string
}

func (c *SteelTypeConstraint) Name() string {
	return fmt.Sprintf("SteelType(%s)", c.Want)
}

func (c *SteelTypeConstraint) Kind() processgraph.NodeKind {
	return processgraph.KindSteel
}

func (c *SteelTypeConstraint) Check(n processgraph.Node) *Violation {
	if n.Steel.Fold == processgraph.Fold(c.Want) {
		return nil
	}
	return &Violation{
		Type:       Mismatch,
		NodeID:     n.ID,
		Label:      n.Label,
		Constraint: c.Name(),
		Message:    fmt.Sprintf("steel %q is not %q", n.Steel.Name, c.Want),
	}
}

// CompositionConstraint compares one element of a steel's composition.
// A steel lacking the element fails.
type CompositionConstraint struct {
	Element string
	Filter  CompositionFilter
}

func (c *CompositionConstraint) Name() string {
	return fmt.Sprintf("Composition(%s %s %s)", c.Element, c.Filter.Op, processgraph.FormatNumber(c.Filter.Val))
}

func (c *CompositionConstraint) Kind() processgraph.NodeKind {
	return processgraph.KindSteel
}

func (c *CompositionConstraint) Check(n processgraph.Node) *Violation {
	v, ok := elementValue(n.Steel, c.Element)
	if !ok {
		return &Violation{
			Type:       MissingProperty,
			NodeID:     n.ID,
			Label:      n.Label,
			Constraint: c.Name(),
			Message:    fmt.Sprintf("steel %q has no %s content", n.Steel.Name, c.Element),
		}
	}
	if c.Filter.Op.Apply(v, c.Filter.Val) {
		return nil
	}
	return &Violation{
		Type:       OutOfRange,
		NodeID:     n.ID,
		Label:      n.Label,
		Constraint: c.Name(),
		Message: fmt.Sprintf("steel %q %s = %s fails %s %s", n.Steel.Name, c.Element,
			processgraph.FormatNumber(v), c.Filter.Op, processgraph.FormatNumber(c.Filter.Val)),
	}
}

func elementValue(s *processgraph.Steel, element string) (float64, bool) {
	for k, v := range s.Composition {
		if NormalizeKey(k) == element {
			if math.IsNaN(v) {
				return 0, false
			}
			return v, true
		}
	}
	return 0, false
}

// RangeConstraint keeps Time, Temperature or Hardness nodes inside Range.
type RangeConstraint struct {
	Target processgraph.NodeKind
	Range  Range
}

func (c *RangeConstraint) Name() string {
	return fmt.Sprintf("Range(%s in [%s, %s])", c.Target,
		processgraph.FormatNumber(c.Range.Min), processgraph.FormatNumber(c.Range.Max))
}

func (c *RangeConstraint) Kind() processgraph.NodeKind {
	return c.Target
}

func (c *RangeConstraint) Check(n processgraph.Node) *Violation {
	if c.Range.Contains(n.Value) {
		return nil
	}
	return &Violation{
		Type:       OutOfRange,
		NodeID:     n.ID,
		Label:      n.Label,
		Constraint: c.Name(),
		Message: fmt.Sprintf("%s %s outside [%s, %s]", c.Target,
			processgraph.FormatNumber(n.Value),
			processgraph.FormatNumber(c.Range.Min), processgraph.FormatNumber(c.Range.Max)),
	}
}
