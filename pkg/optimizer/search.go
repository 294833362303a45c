package optimizer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dd0wney/cluso-tempering/pkg/algorithms"
	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
)

// pathLayers is the node kind expected at each position of a valid path.
var pathLayers = []processgraph.NodeKind{
	processgraph.KindSource,
	processgraph.KindSteel,
	processgraph.KindTime,
	processgraph.KindTemperature,
	processgraph.KindHardness,
}

type candidate struct {
	ids    []processgraph.NodeID
	labels []string
	detail Detail
	fold   string
}

type searchResult struct {
	cost       float64
	candidates []candidate
	rejected   int
}

// search finds every optimal Source->Hardness path of a weighted graph.
// Errors are sentinels; the engine classifies them.
func search(ctx context.Context, g *processgraph.Graph, tol algorithms.Tolerance, logger logging.Logger) (*searchResult, error) {
	if !algorithms.IsDAG(g) {
		return nil, algorithms.ErrCycle
	}
	source, ok := g.Source()
	if !ok {
		return nil, ErrNoCompletePath
	}
	hardness := g.NodesOfKind(processgraph.KindHardness)
	if len(hardness) == 0 {
		return nil, ErrNoCompletePath
	}
	targets := make([]processgraph.NodeID, len(hardness))
	for i, n := range hardness {
		targets[i] = n.ID
	}

	dist, err := algorithms.Dijkstra(g, source, tol)
	if err != nil {
		return nil, err
	}
	min, tied, ok := algorithms.TiedMinimum(dist, targets, tol)
	if !ok {
		return nil, ErrNoReachablePath
	}

	res := &searchResult{cost: min}
	for _, target := range tied {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		paths, err := algorithms.AllShortestPaths(ctx, dist, target)
		if err != nil {
			return nil, err
		}
		for _, ids := range paths {
			c, err := describe(g, ids)
			if err != nil {
				res.rejected++
				logger.Warn("rejecting malformed path", logging.Error(err), logging.Path(pathString(g, ids)))
				continue
			}
			res.candidates = append(res.candidates, c)
		}
	}
	if len(res.candidates) == 0 {
		return nil, ErrNoValidPath
	}

	slices.SortStableFunc(res.candidates, compareCandidates)
	return res, nil
}

// describe validates a path's shape and extracts its process details.
func describe(g *processgraph.Graph, ids []processgraph.NodeID) (candidate, error) {
	if len(ids) != len(pathLayers) {
		return candidate{}, fmt.Errorf("path has %d nodes, want %d", len(ids), len(pathLayers))
	}
	nodes := make([]processgraph.Node, len(ids))
	labels := make([]string, len(ids))
	for i, id := range ids {
		n, err := g.Node(id)
		if err != nil {
			return candidate{}, err
		}
		if n.Kind != pathLayers[i] {
			return candidate{}, fmt.Errorf("position %d is %s, want %s", i, n.Kind, pathLayers[i])
		}
		if i > 0 {
			if _, ok := g.Edge(ids[i-1], id); !ok {
				return candidate{}, fmt.Errorf("no edge %s -> %s", labels[i-1], n.Label)
			}
		}
		nodes[i] = n
		labels[i] = n.Label
	}
	steel, tm, temp, hard := nodes[1], nodes[2], nodes[3], nodes[4]
	if tm.Row != temp.Row {
		return candidate{}, fmt.Errorf("time row %d and temperature row %d differ", tm.Row, temp.Row)
	}
	return candidate{
		ids:    ids,
		labels: labels,
		fold:   steel.Steel.Fold,
		detail: Detail{
			Steel:       steel.Steel.Name,
			Hardness:    hard.Value,
			Temperature: temp.Value,
			Time:        tm.Value,
			Row:         tm.Row,
			Composition: maps.Clone(steel.Steel.Composition),
		},
	}, nil
}

func compareCandidates(a, b candidate) int {
	if c := strings.Compare(a.fold, b.fold); c != 0 {
		return c
	}
	if c := strings.Compare(a.detail.Steel, b.detail.Steel); c != 0 {
		return c
	}
	if c := cmp.Compare(a.detail.Row, b.detail.Row); c != 0 {
		return c
	}
	return cmp.Compare(a.detail.Hardness, b.detail.Hardness)
}

func pathString(g *processgraph.Graph, ids []processgraph.NodeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		if n, err := g.Node(id); err == nil {
			parts[i] = n.Label
		} else {
			parts[i] = fmt.Sprint(id)
		}
	}
	return strings.Join(parts, " -> ")
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
