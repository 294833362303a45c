package algorithms

import (
	"errors"

	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

// ErrCycle is returned when a graph is not acyclic.
var ErrCycle = errors.New("graph contains a cycle")

// IsDAG checks if the graph is a Directed Acyclic Graph
func IsDAG(g *processgraph.Graph) bool {
	_, err := TopologicalSort(g)
	return err == nil
}

// TopologicalSort returns nodes in topological order using Kahn's algorithm.
func TopologicalSort(g *processgraph.Graph) ([]processgraph.NodeID, error) {
	n := g.Len()
	inDegree := make([]int, n)
	for _, e := range g.Edges() {
		inDegree[e.To]++
	}

	queue := make([]processgraph.NodeID, 0, n)
	for id := 0; id < n; id++ {
		if inDegree[id] == 0 {
			queue = append(queue, processgraph.NodeID(id))
		}
	}

	sorted := make([]processgraph.NodeID, 0, n)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, current)

		for _, e := range g.Successors(current) {
			inDegree[e.To]--
			if inDegree[e.To] == 0 {
				queue = append(queue, e.To)
			}
		}
	}

	if len(sorted) != n {
		return nil, ErrCycle
	}
	return sorted, nil
}
