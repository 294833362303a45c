// Package processgraph builds and queries the layered tempering process DAG:
// Source -> Steel -> Time -> Temperature -> Hardness -> Sink.
//
// Nodes live in an arena addressed by NodeID. Time and Temperature nodes are
// unique per record so a path can never splice the time of one observation
// onto the temperature of another. Steel nodes are shared per steel and
// Hardness nodes per value. A Graph is never mutated once returned; Induce,
// Canonical and Reweighted all produce fresh graphs.
package processgraph

import "fmt"

// NodeKind tags which layer a node belongs to.
type NodeKind int

const (
	KindSource NodeKind = iota
	KindSteel
	KindTime
	KindTemperature
	KindHardness
	KindSink
)

// Layer returns the layer index, which equals the kind's numeric value.
func (k NodeKind) Layer() int {
	return int(k)
}

func (k NodeKind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindSteel:
		return "steel"
	case KindTime:
		return "time"
	case KindTemperature:
		return "temperature"
	case KindHardness:
		return "hardness"
	case KindSink:
		return "sink"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Kinds lists every node kind in layer order.
func Kinds() []NodeKind {
	return []NodeKind{KindSource, KindSteel, KindTime, KindTemperature, KindHardness, KindSink}
}

// NodeID indexes a node in its graph's arena. IDs are only meaningful
// within the graph that issued them.
type NodeID int

// Key is the identity of a node:
//   - Source, Sink: Kind only
//   - Steel: identifier exactly as recorded
//   - Time, Temperature: originating record row
//   - Hardness: value
type Key struct {
	Kind  NodeKind
	Row   int
	Name  string
	Value float64
}

// Steel holds the attributes of a steel grade.
type Steel struct {
	Name string
	// Fold is the case-folded name used by the steel_type filter and for
	// ordering. Steels that only differ in case are distinct nodes.
	Fold        string
	Composition map[string]float64
}

// Node is a graph vertex. Row is -1 for kinds not tied to a single record.
type Node struct {
	ID    NodeID
	Kind  NodeKind
	Row   int
	Value float64
	Steel *Steel
	Label string
}

// Key returns the node's identity key.
func (n Node) Key() Key {
	switch n.Kind {
	case KindSteel:
		return Key{Kind: n.Kind, Name: n.Steel.Name}
	case KindTime, KindTemperature:
		return Key{Kind: n.Kind, Row: n.Row}
	case KindHardness:
		return Key{Kind: n.Kind, Value: n.Value}
	default:
		return Key{Kind: n.Kind}
	}
}

// Edge is a directed edge. Time is set on Steel->Time edges and Temperature
// on Time->Temperature edges; Weight is zero until a cost mode is assigned.
type Edge struct {
	From        NodeID
	To          NodeID
	Time        *float64
	Temperature *float64
	Weight      float64
}

// Stats are dataset-wide normalization scalars fixed at build time.
type Stats struct {
	MaxTime        float64 `json:"max_time_s"`
	MaxTemperature float64 `json:"max_temperature_c"`
	LogMaxTime     float64 `json:"log_max_time"`
}

// NodeSet is an unordered set of node IDs.
type NodeSet map[NodeID]struct{}

func (s NodeSet) Add(id NodeID) {
	s[id] = struct{}{}
}

func (s NodeSet) Has(id NodeID) bool {
	_, ok := s[id]
	return ok
}
