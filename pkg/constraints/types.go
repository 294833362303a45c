// Package constraints models query filters and prunes a process graph down
// to the nodes that satisfy them.
package constraints

import (
	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

// ViolationType categorizes why a node was removed
type ViolationType int

const (
	MissingProperty ViolationType = iota
	OutOfRange
	Mismatch
	Unreachable
)

func (vt ViolationType) String() string {
	switch vt {
	case MissingProperty:
		return "MissingProperty"
	case OutOfRange:
		return "OutOfRange"
	case Mismatch:
		return "Mismatch"
	case Unreachable:
		return "Unreachable"
	default:
		return "Unknown"
	}
}

// Violation records one node eliminated during pruning.
type Violation struct {
	Type       ViolationType
	NodeID     processgraph.NodeID
	Label      string
	Constraint string
	Message    string
}

// Constraint is a predicate over the nodes of one kind.
type Constraint interface {
	// Name returns a human-readable name for the constraint
	Name() string
	// Kind is the node kind the constraint applies to
	Kind() processgraph.NodeKind
	// Check returns nil when n satisfies the constraint
	Check(n processgraph.Node) *Violation
}
