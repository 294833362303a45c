package algorithms

import (
	"context"
	"slices"

	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

// AllShortestPaths enumerates every tied shortest path from d.Source to
// target, each ordered source first. Paths are returned in lexicographic
// node ID order, which on a canonical graph is canonical label order.
func AllShortestPaths(ctx context.Context, d *Distances, target processgraph.NodeID) ([][]processgraph.NodeID, error) {
	if _, ok := d.Cost(target); !ok {
		return nil, nil
	}

	var (
		paths [][]processgraph.NodeID
		stack []processgraph.NodeID
		walk  func(processgraph.NodeID) error
	)
	walk = func(n processgraph.NodeID) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stack = append(stack, n)
		defer func() { stack = stack[:len(stack)-1] }()

		if n == d.Source {
			path := slices.Clone(stack)
			slices.Reverse(path)
			paths = append(paths, path)
			return nil
		}
		for _, p := range d.pred[n] {
			if err := walk(p); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(target); err != nil {
		return nil, err
	}

	slices.SortFunc(paths, func(a, b []processgraph.NodeID) int { return slices.Compare(a, b) })
	return paths, nil
}
