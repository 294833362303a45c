package processgraph

import (
	"cmp"
	"errors"
	"slices"
	"strings"
)

var (
	ErrEmptyGraph   = errors.New("graph has no steel nodes")
	ErrNodeNotFound = errors.New("node not found")
)

// Graph is an immutable layered DAG.
type Graph struct {
	nodes []Node
	out   [][]Edge
	in    [][]NodeID
	index map[Key]NodeID
	edges int
	stats Stats
}

func newGraph(capacity int, stats Stats) *Graph {
	return &Graph{
		nodes: make([]Node, 0, capacity),
		out:   make([][]Edge, 0, capacity),
		in:    make([][]NodeID, 0, capacity),
		index: make(map[Key]NodeID, capacity),
		stats: stats,
	}
}

// addNode inserts n unless a node with the same key exists, returning the ID either way.
func (g *Graph) addNode(n Node) NodeID {
	if id, ok := g.index[n.Key()]; ok {
		return id
	}
	id := NodeID(len(g.nodes))
	n.ID = id
	g.nodes = append(g.nodes, n)
	g.out = append(g.out, nil)
	g.in = append(g.in, nil)
	g.index[n.Key()] = id
	return id
}

// addEdge inserts e unless the edge already exists.
func (g *Graph) addEdge(e Edge) {
	for _, existing := range g.out[e.From] {
		if existing.To == e.To {
			return
		}
	}
	g.out[e.From] = append(g.out[e.From], e)
	g.in[e.To] = append(g.in[e.To], e.From)
	g.edges++
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Node returns the node with the given ID.
func (g *Graph) Node(id NodeID) (Node, error) {
	if id < 0 || int(id) >= len(g.nodes) {
		return Node{}, ErrNodeNotFound
	}
	return g.nodes[id], nil
}

// Nodes returns every node in ID order.
func (g *Graph) Nodes() []Node {
	return slices.Clone(g.nodes)
}

// NodesOfKind returns the nodes of one kind in ID order.
func (g *Graph) NodesOfKind(kind NodeKind) []Node {
	var out []Node
	for _, n := range g.nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// CountByKind returns the number of nodes per kind.
func (g *Graph) CountByKind() map[NodeKind]int {
	counts := make(map[NodeKind]int, len(Kinds()))
	for _, n := range g.nodes {
		counts[n.Kind]++
	}
	return counts
}

// Successors returns the outgoing edges of id, ordered by target ID.
func (g *Graph) Successors(id NodeID) []Edge {
	if id < 0 || int(id) >= len(g.out) {
		return nil
	}
	return slices.Clone(g.out[id])
}

// Predecessors returns the source IDs of edges into id.
func (g *Graph) Predecessors(id NodeID) []NodeID {
	if id < 0 || int(id) >= len(g.in) {
		return nil
	}
	return slices.Clone(g.in[id])
}

// Edge returns the edge from -> to, if present.
func (g *Graph) Edge(from, to NodeID) (Edge, bool) {
	if from < 0 || int(from) >= len(g.out) {
		return Edge{}, false
	}
	for _, e := range g.out[from] {
		if e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// Edges returns every edge ordered by (From, To).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, g.edges)
	for _, es := range g.out {
		out = append(out, es...)
	}
	return out
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Stats returns the dataset-wide normalization scalars.
func (g *Graph) Stats() Stats {
	return g.stats
}

// Lookup finds a node by identity key.
func (g *Graph) Lookup(key Key) (NodeID, bool) {
	id, ok := g.index[key]
	return id, ok
}

// LookupSteel finds the steel node with exactly this identifier.
func (g *Graph) LookupSteel(name string) (NodeID, bool) {
	return g.Lookup(Key{Kind: KindSteel, Name: name})
}

// Source returns the source node, absent only from the empty graph.
func (g *Graph) Source() (NodeID, bool) {
	return g.Lookup(Key{Kind: KindSource})
}

// Sink returns the sink node. Pruned graphs do not carry one.
func (g *Graph) Sink() (NodeID, bool) {
	return g.Lookup(Key{Kind: KindSink})
}

// Descendants returns every node reachable from id, excluding id.
func (g *Graph) Descendants(id NodeID) NodeSet {
	return g.walk(id, func(n NodeID) []NodeID {
		next := make([]NodeID, len(g.out[n]))
		for i, e := range g.out[n] {
			next[i] = e.To
		}
		return next
	})
}

// Ancestors returns every node that reaches id, excluding id.
func (g *Graph) Ancestors(id NodeID) NodeSet {
	return g.walk(id, func(n NodeID) []NodeID { return g.in[n] })
}

func (g *Graph) walk(start NodeID, next func(NodeID) []NodeID) NodeSet {
	seen := make(NodeSet)
	if start < 0 || int(start) >= len(g.nodes) {
		return seen
	}
	stack := []NodeID{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, m := range next(n) {
			if !seen.Has(m) {
				seen.Add(m)
				stack = append(stack, m)
			}
		}
	}
	delete(seen, start)
	return seen
}

// Induce returns the subgraph on keep. Surviving nodes keep their relative
// order but are renumbered; edges are copied with their weights.
func (g *Graph) Induce(keep NodeSet) *Graph {
	sub := newGraph(len(keep), g.stats)
	remap := make(map[NodeID]NodeID, len(keep))
	for _, n := range g.nodes {
		if keep.Has(n.ID) {
			remap[n.ID] = sub.addNode(n)
		}
	}
	for _, n := range g.nodes {
		from, ok := remap[n.ID]
		if !ok {
			continue
		}
		for _, e := range g.out[n.ID] {
			to, ok := remap[e.To]
			if !ok {
				continue
			}
			e.From, e.To = from, to
			sub.addEdge(e)
		}
	}
	return sub
}

// Canonical rebuilds the graph with nodes in canonical order and every
// adjacency list sorted by target.
func (g *Graph) Canonical() *Graph {
	return g.Reweighted(func(e Edge) float64 { return e.Weight })
}

// Reweighted rebuilds the graph canonically with weight(e) on every edge.
func (g *Graph) Reweighted(weight func(Edge) float64) *Graph {
	order := slices.Clone(g.nodes)
	slices.SortStableFunc(order, compareNodes)

	c := newGraph(len(order), g.stats)
	remap := make([]NodeID, len(g.nodes))
	for _, n := range order {
		remap[n.ID] = c.addNode(n)
	}
	for _, n := range order {
		es := make([]Edge, 0, len(g.out[n.ID]))
		for _, e := range g.out[n.ID] {
			e.Weight = weight(e)
			e.From, e.To = remap[e.From], remap[e.To]
			es = append(es, e)
		}
		slices.SortFunc(es, func(a, b Edge) int { return cmp.Compare(a.To, b.To) })
		for _, e := range es {
			c.addEdge(e)
		}
	}
	for i := range c.in {
		slices.Sort(c.in[i])
	}
	return c
}

// compareNodes orders by kind, then the kind's natural key, then label.
func compareNodes(a, b Node) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	switch a.Kind {
	case KindSteel:
		if c := strings.Compare(a.Steel.Fold, b.Steel.Fold); c != 0 {
			return c
		}
		if c := strings.Compare(a.Steel.Name, b.Steel.Name); c != 0 {
			return c
		}
	case KindTime, KindTemperature:
		if c := cmp.Compare(a.Row, b.Row); c != 0 {
			return c
		}
	case KindHardness:
		if c := cmp.Compare(a.Value, b.Value); c != 0 {
			return c
		}
	}
	return strings.Compare(a.Label, b.Label)
}

// Fold returns the comparison key for a steel name.
func Fold(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
