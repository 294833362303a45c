package constraints

import (
	"errors"

	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

// ErrNoMatch is returned when filters eliminate every node of a layer.
var ErrNoMatch = errors.New("no match for filters")

// PruneResult describes how a graph was reduced.
type PruneResult struct {
	Violations []Violation
	// Emptied names the layer the filters emptied. Only set with ErrNoMatch.
	Emptied processgraph.NodeKind
	Removed int
}

// Violated returns violations of one type.
func (r *PruneResult) Violated(t ViolationType) []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Type == t {
			out = append(out, v)
		}
	}
	return out
}

// Pruner derives filtered subgraphs from a master graph.
type Pruner struct {
	constraints []Constraint
	logger      logging.Logger
}

// NewPruner creates a pruner for the given filters.
func NewPruner(f Filters, logger logging.Logger) *Pruner {
	return &Pruner{
		constraints: f.Constraints(),
		logger:      logging.OrDefault(logger).With(logging.Component("pruner")),
	}
}

// Prune runs steel elimination, range elimination and reachability cleanup.
// The master graph is never modified. ErrNoMatch is returned, together with
// a result naming the emptied layer, when steps one and two leave a layer
// without nodes.
func (p *Pruner) Prune(g *processgraph.Graph) (*processgraph.Graph, *PruneResult, error) {
	result := &PruneResult{}
	alive := make(processgraph.NodeSet, g.Len())
	for _, n := range g.Nodes() {
		alive.Add(n.ID)
	}

	for _, stage := range [][]processgraph.NodeKind{
		{processgraph.KindSteel},
		{processgraph.KindTime, processgraph.KindTemperature, processgraph.KindHardness},
	} {
		for _, kind := range stage {
			p.eliminate(g, kind, alive, result)
		}
	}

	staged := g.Induce(alive)
	counts := staged.CountByKind()
	for _, kind := range []processgraph.NodeKind{
		processgraph.KindSteel, processgraph.KindTime, processgraph.KindTemperature, processgraph.KindHardness,
	} {
		if counts[kind] == 0 {
			result.Emptied = kind
			result.Removed = g.Len() - staged.Len()
			p.logger.Info("filters emptied layer",
				logging.Kind(kind.String()), logging.Int("violations", len(result.Violations)))
			return nil, result, ErrNoMatch
		}
	}

	keep := reachable(staged)
	for _, n := range staged.Nodes() {
		if !keep.Has(n.ID) {
			masterID, _ := g.Lookup(n.Key())
			result.Violations = append(result.Violations, Violation{
				Type:       Unreachable,
				NodeID:     masterID,
				Label:      n.Label,
				Constraint: "Reachability",
				Message:    "not on any source to hardness path",
			})
		}
	}
	pruned := staged.Induce(keep)
	result.Removed = g.Len() - pruned.Len()

	p.logger.Debug("pruned graph",
		logging.Int("nodes", pruned.Len()),
		logging.Int("removed", result.Removed),
		logging.Int("edges", pruned.EdgeCount()))
	return pruned, result, nil
}

func (p *Pruner) eliminate(g *processgraph.Graph, kind processgraph.NodeKind, alive processgraph.NodeSet, result *PruneResult) {
	var applicable []Constraint
	for _, c := range p.constraints {
		if c.Kind() == kind {
			applicable = append(applicable, c)
		}
	}
	if len(applicable) == 0 {
		return
	}
	for _, n := range g.NodesOfKind(kind) {
		if !alive.Has(n.ID) {
			continue
		}
		for _, c := range applicable {
			if v := c.Check(n); v != nil {
				result.Violations = append(result.Violations, *v)
				delete(alive, n.ID)
				p.logger.Debug("node eliminated", logging.String("node", n.Label), logging.String("constraint", v.Constraint))
				break
			}
		}
	}
}

// reachable returns (descendants(source) ∩ ⋃ ancestors(t)) ∪ {source} ∪ T
// where T is every hardness node.
func reachable(g *processgraph.Graph) processgraph.NodeSet {
	keep := make(processgraph.NodeSet)
	source, ok := g.Source()
	targets := g.NodesOfKind(processgraph.KindHardness)
	if ok {
		keep.Add(source)
	}

	ancestors := make(processgraph.NodeSet)
	for _, t := range targets {
		keep.Add(t.ID)
		for id := range g.Ancestors(t.ID) {
			ancestors.Add(id)
		}
	}
	if !ok {
		return keep
	}
	for id := range g.Descendants(source) {
		if ancestors.Has(id) {
			keep.Add(id)
		}
	}
	return keep
}

// Prune is shorthand for NewPruner(f, logger).Prune(g).
func Prune(g *processgraph.Graph, f Filters, logger logging.Logger) (*processgraph.Graph, *PruneResult, error) {
	return NewPruner(f, logger).Prune(g)
}
