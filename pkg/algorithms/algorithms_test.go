package algorithms_test

import (
	"context"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-tempering/pkg/algorithms"
	pg "github.com/dd0wney/cluso-tempering/pkg/processgraph"
	"github.com/dd0wney/cluso-tempering/pkg/processgraph/graphtest"
	"github.com/dd0wney/cluso-tempering/pkg/records"
	"github.com/dd0wney/cluso-tempering/pkg/weighting"
)

var tol = algorithms.DefaultTolerance

func weighted(t *testing.T, recs []records.ProcessRecord, mode weighting.Mode, alpha float64) *pg.Graph {
	t.Helper()
	w, err := weighting.Assign(graphtest.Build(t, recs), mode, alpha)
	require.NoError(t, err)
	return w
}

func hardnessIDs(g *pg.Graph) []pg.NodeID {
	var ids []pg.NodeID
	for _, n := range g.NodesOfKind(pg.KindHardness) {
		ids = append(ids, n.ID)
	}
	return ids
}

type costedPath struct {
	ids  []pg.NodeID
	cost float64
}

// allPaths enumerates every source to hardness path by brute force.
func allPaths(g *pg.Graph) []costedPath {
	source, _ := g.Source()
	var out []costedPath
	var walk func(pg.NodeID, []pg.NodeID, float64)
	walk = func(id pg.NodeID, path []pg.NodeID, cost float64) {
		path = append(path, id)
		n, _ := g.Node(id)
		if n.Kind == pg.KindHardness {
			out = append(out, costedPath{ids: append([]pg.NodeID(nil), path...), cost: cost})
			return
		}
		for _, e := range g.Successors(id) {
			walk(e.To, path, cost+e.Weight)
		}
	}
	walk(source, nil, 0)
	return out
}

func TestTolerance(t *testing.T) {
	assert.True(t, tol.Equal(1.00005, 1))
	assert.False(t, tol.Equal(1.0002, 1))
	assert.True(t, tol.Equal(3600.003, 3600), "relative part dominates for large costs")
	assert.False(t, tol.Equal(3600.01, 3600))
	assert.True(t, tol.Less(1, 2))
	assert.False(t, tol.Less(1.99999, 2))
}

func TestDijkstraScenarioTime(t *testing.T) {
	g := weighted(t, graphtest.ScenarioRecords(), weighting.ModeTime, 0)
	source, _ := g.Source()
	d, err := algorithms.Dijkstra(g, source, tol)
	require.NoError(t, err)

	h50, _ := g.Lookup(pg.Key{Kind: pg.KindHardness, Value: 50})
	h60, _ := g.Lookup(pg.Key{Kind: pg.KindHardness, Value: 60})
	c50, ok := d.Cost(h50)
	require.True(t, ok)
	assert.Equal(t, 10.0, c50)
	c60, _ := d.Cost(h60)
	assert.Equal(t, 5.0, c60)

	temp0, _ := g.Lookup(pg.Key{Kind: pg.KindTemperature, Row: 0})
	assert.Equal(t, []pg.NodeID{temp0}, d.Predecessors(h50), "only the 10 s chain is tight")

	min, tied, ok := algorithms.TiedMinimum(d, hardnessIDs(g), tol)
	require.True(t, ok)
	assert.Equal(t, 5.0, min)
	assert.Equal(t, []pg.NodeID{h60}, tied)

	paths, err := algorithms.AllShortestPaths(context.Background(), d, h50)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	var got []string
	for _, id := range paths[0] {
		n, _ := g.Node(id)
		got = append(got, n.Label)
	}
	assert.Equal(t, []string{"SOURCE", "Steel: SteelX", "Time: 10 s | id:0", "Temp: 200 C | id:0", "Hardness: 50 HRC"}, got)
}

func TestAllShortestPathsTies(t *testing.T) {
	recs := []records.ProcessRecord{
		{Steel: "B", Time: 10, Temperature: 200, Hardness: 50},
		{Steel: "A", Time: 10, Temperature: 300, Hardness: 50},
		{Steel: "A", Time: 10.00001, Temperature: 100, Hardness: 55},
	}
	g := weighted(t, recs, weighting.ModeTime, 0)
	source, _ := g.Source()
	d, err := algorithms.Dijkstra(g, source, tol)
	require.NoError(t, err)

	min, tied, ok := algorithms.TiedMinimum(d, hardnessIDs(g), tol)
	require.True(t, ok)
	assert.Equal(t, 10.0, min)
	assert.Len(t, tied, 2)

	h50, _ := g.Lookup(pg.Key{Kind: pg.KindHardness, Value: 50})
	paths, err := algorithms.AllShortestPaths(context.Background(), d, h50)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	first, _ := g.Node(paths[0][1])
	second, _ := g.Node(paths[1][1])
	assert.Equal(t, "A", first.Steel.Name)
	assert.Equal(t, "B", second.Steel.Name)
}

func TestAllShortestPathsUnreachable(t *testing.T) {
	g := weighted(t, graphtest.ScenarioRecords(), weighting.ModeTime, 0)
	sink, _ := g.Sink()
	h50, _ := g.Lookup(pg.Key{Kind: pg.KindHardness, Value: 50})
	d, err := algorithms.Dijkstra(g, h50, tol)
	require.NoError(t, err)

	source, _ := g.Source()
	_, ok := d.Cost(source)
	assert.False(t, ok)
	paths, err := algorithms.AllShortestPaths(context.Background(), d, source)
	assert.NoError(t, err)
	assert.Nil(t, paths)

	c, ok := d.Cost(sink)
	assert.True(t, ok)
	assert.Zero(t, c)

	_, _, ok = algorithms.TiedMinimum(d, []pg.NodeID{source}, tol)
	assert.False(t, ok)
}

func TestAllShortestPathsCancelled(t *testing.T) {
	g := weighted(t, graphtest.ScenarioRecords(), weighting.ModeTime, 0)
	source, _ := g.Source()
	d, err := algorithms.Dijkstra(g, source, tol)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h50, _ := g.Lookup(pg.Key{Kind: pg.KindHardness, Value: 50})
	_, err = algorithms.AllShortestPaths(ctx, d, h50)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDijkstraErrors(t *testing.T) {
	g := graphtest.Build(t, graphtest.ScenarioRecords())
	_, err := algorithms.Dijkstra(g, pg.NodeID(g.Len()), tol)
	assert.ErrorIs(t, err, algorithms.ErrUnknownSource)

	neg := g.Reweighted(func(e pg.Edge) float64 { return -1 })
	source, _ := neg.Source()
	_, err = algorithms.Dijkstra(neg, source, tol)
	assert.ErrorIs(t, err, algorithms.ErrNegativeWeight)
}

func TestTopologicalSort(t *testing.T) {
	g := graphtest.Build(t, graphtest.ScenarioRecords())
	order, err := algorithms.TopologicalSort(g)
	require.NoError(t, err)
	require.Len(t, order, g.Len())
	assert.True(t, algorithms.IsDAG(g))

	pos := make(map[pg.NodeID]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	for _, e := range g.Edges() {
		assert.Less(t, pos[e.From], pos[e.To])
	}
}

func TestShortestPathProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	modes := []weighting.Mode{weighting.ModeTime, weighting.ModeTemperature, weighting.ModeBalanced}

	properties.Property("minimum equals brute force and every tied path is found", prop.ForAll(
		func(seeds []int, modeIdx int, alpha float64) bool {
			g := weighted(t, graphtest.Records(seeds), modes[modeIdx], alpha)
			source, _ := g.Source()
			d, err := algorithms.Dijkstra(g, source, tol)
			if err != nil {
				return false
			}

			all := allPaths(g)
			best := math.Inf(1)
			for _, p := range all {
				best = math.Min(best, p.cost)
			}
			min, tied, ok := algorithms.TiedMinimum(d, hardnessIDs(g), tol)
			if !ok || math.Abs(min-best) > 1e-9 {
				return false
			}

			found := make(map[string]bool)
			for _, target := range tied {
				paths, err := algorithms.AllShortestPaths(context.Background(), d, target)
				if err != nil {
					return false
				}
				for _, p := range paths {
					found[key(p)] = true
				}
			}
			for _, p := range all {
				if tol.Equal(p.cost, best) && !found[key(p.ids)] {
					return false
				}
			}
			return true
		},
		graphtest.GenSeeds(),
		gen.IntRange(0, 2),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func key(ids []pg.NodeID) string {
	b := make([]byte, 0, len(ids)*3)
	for _, id := range ids {
		b = append(b, byte(id>>8), byte(id), ',')
	}
	return string(b)
}
