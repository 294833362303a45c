package algorithms

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

var (
	ErrNegativeWeight = errors.New("negative edge weight")
	ErrUnknownSource  = errors.New("source node not in graph")
)

// Distances holds single-source shortest-path costs and, for every reached
// node, all predecessors whose path ties within tolerance.
type Distances struct {
	Source processgraph.NodeID
	dist   []float64
	pred   [][]processgraph.NodeID
}

// Cost returns the shortest cost to id and whether id is reachable.
func (d *Distances) Cost(id processgraph.NodeID) (float64, bool) {
	if id < 0 || int(id) >= len(d.dist) || math.IsInf(d.dist[id], 1) {
		return math.Inf(1), false
	}
	return d.dist[id], true
}

// Predecessors returns the tied predecessors of id in ascending ID order.
func (d *Distances) Predecessors(id processgraph.NodeID) []processgraph.NodeID {
	if id < 0 || int(id) >= len(d.pred) {
		return nil
	}
	return slices.Clone(d.pred[id])
}

type pqItem struct {
	node processgraph.NodeID
	dist float64
}

// distanceQueue is a min-heap on (dist, node) so equal costs pop in canonical order.
type distanceQueue []pqItem

func (q distanceQueue) Len() int { return len(q) }
func (q distanceQueue) Less(i, j int) bool {
	if q[i].dist != q[j].dist {
		return q[i].dist < q[j].dist
	}
	return q[i].node < q[j].node
}
func (q distanceQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *distanceQueue) Push(x any)   { *q = append(*q, x.(pqItem)) }
func (q *distanceQueue) Pop() any {
	old := *q
	item := old[len(old)-1]
	*q = old[:len(old)-1]
	return item
}

// Dijkstra computes shortest costs from source over edge weights, then
// records every predecessor u of v with dist[u]+w(u,v) equal to dist[v]
// within tol.
func Dijkstra(g *processgraph.Graph, source processgraph.NodeID, tol Tolerance) (*Distances, error) {
	if _, err := g.Node(source); err != nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSource, source)
	}

	n := g.Len()
	d := &Distances{
		Source: source,
		dist:   make([]float64, n),
		pred:   make([][]processgraph.NodeID, n),
	}
	for i := range d.dist {
		d.dist[i] = math.Inf(1)
	}
	d.dist[source] = 0

	done := make([]bool, n)
	pq := &distanceQueue{{node: source}}
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if done[cur.node] {
			continue
		}
		done[cur.node] = true

		for _, e := range g.Successors(cur.node) {
			if e.Weight < 0 || math.IsNaN(e.Weight) {
				return nil, fmt.Errorf("%w: %d -> %d (%v)", ErrNegativeWeight, e.From, e.To, e.Weight)
			}
			if alt := cur.dist + e.Weight; alt < d.dist[e.To] {
				d.dist[e.To] = alt
				heap.Push(pq, pqItem{node: e.To, dist: alt})
			}
		}
	}

	for _, e := range g.Edges() {
		if !done[e.From] || !done[e.To] {
			continue
		}
		if tol.Equal(d.dist[e.From]+e.Weight, d.dist[e.To]) {
			d.pred[e.To] = append(d.pred[e.To], e.From)
		}
	}
	for i := range d.pred {
		slices.Sort(d.pred[i])
	}
	return d, nil
}

// TiedMinimum returns the smallest reachable cost among targets and every
// target tying with it, in the order given. ok is false when no target is
// reachable.
func TiedMinimum(d *Distances, targets []processgraph.NodeID, tol Tolerance) (min float64, tied []processgraph.NodeID, ok bool) {
	min = math.Inf(1)
	for _, t := range targets {
		if c, reached := d.Cost(t); reached && c < min {
			min = c
			ok = true
		}
	}
	if !ok {
		return min, nil, false
	}
	for _, t := range targets {
		if c, reached := d.Cost(t); reached && tol.Equal(c, min) {
			tied = append(tied, t)
		}
	}
	return min, tied, true
}
