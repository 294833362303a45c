package processgraph_test

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-tempering/pkg/logging"
	pg "github.com/dd0wney/cluso-tempering/pkg/processgraph"
	"github.com/dd0wney/cluso-tempering/pkg/processgraph/graphtest"
	"github.com/dd0wney/cluso-tempering/pkg/records"
)

func labels(nodes []pg.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label
	}
	return out
}

func TestBuildScenarioGraph(t *testing.T) {
	g := graphtest.Build(t, graphtest.ScenarioRecords())

	assert.Equal(t, []string{
		"SOURCE",
		"Steel: SteelX", "Steel: SteelY",
		"Time: 10 s | id:0", "Time: 20 s | id:1", "Time: 5 s | id:2",
		"Temp: 200 C | id:0", "Temp: 150 C | id:1", "Temp: 300 C | id:2",
		"Hardness: 50 HRC", "Hardness: 60 HRC",
		"SINK",
	}, labels(g.Nodes()))
	assert.Equal(t, 13, g.EdgeCount())

	counts := g.CountByKind()
	assert.Equal(t, 1, counts[pg.KindSource])
	assert.Equal(t, 2, counts[pg.KindSteel])
	assert.Equal(t, 3, counts[pg.KindTime])
	assert.Equal(t, 3, counts[pg.KindTemperature])
	assert.Equal(t, 2, counts[pg.KindHardness])
	assert.Equal(t, 1, counts[pg.KindSink])

	steelX, ok := g.LookupSteel("SteelX")
	require.True(t, ok)
	time0, ok := g.Lookup(pg.Key{Kind: pg.KindTime, Row: 0})
	require.True(t, ok)
	e, ok := g.Edge(steelX, time0)
	require.True(t, ok)
	require.NotNil(t, e.Time)
	assert.Equal(t, 10.0, *e.Time)
	assert.Nil(t, e.Temperature)
	assert.Zero(t, e.Weight)

	h50, ok := g.Lookup(pg.Key{Kind: pg.KindHardness, Value: 50})
	require.True(t, ok)
	assert.Len(t, g.Predecessors(h50), 2, "hardness nodes converge across records")
}

func TestBuildEdgesFollowLayers(t *testing.T) {
	g := graphtest.Build(t, graphtest.ScenarioRecords())
	for _, e := range g.Edges() {
		from, err := g.Node(e.From)
		require.NoError(t, err)
		to, err := g.Node(e.To)
		require.NoError(t, err)
		assert.Equal(t, from.Kind.Layer()+1, to.Kind.Layer(), "%s -> %s", from.Label, to.Label)
	}
}

func TestBuildSkipsInvalidRecords(t *testing.T) {
	recs := append(graphtest.ScenarioRecords(),
		records.ProcessRecord{Steel: "", Time: 1, Temperature: 1, Hardness: 1},
		records.ProcessRecord{Steel: "SteelZ", Time: math.NaN(), Temperature: 1, Hardness: 1},
		records.ProcessRecord{Steel: "SteelZ", Time: -3, Temperature: 1, Hardness: 1},
	)
	g, report, err := pg.Build(records.NewStore(recs), pg.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)

	assert.Equal(t, 6, report.Records)
	assert.Equal(t, 3, report.Used)
	require.Len(t, report.Skipped, 3)
	assert.Equal(t, pg.SkippedRow{Row: 3, Reason: "missing steel identifier"}, report.Skipped[0])
	assert.Equal(t, "missing tempering time", report.Skipped[1].Reason)
	assert.Equal(t, "negative tempering time", report.Skipped[2].Reason)

	_, ok := g.LookupSteel("SteelZ")
	assert.False(t, ok)
}

func TestBuildEmpty(t *testing.T) {
	recs := []records.ProcessRecord{{Steel: " ", Time: 1, Temperature: 1, Hardness: 1}}
	g, report, err := pg.Build(records.NewStore(recs), pg.WithLogger(logging.NewNopLogger()))
	assert.ErrorIs(t, err, pg.ErrEmptyGraph)
	assert.Nil(t, g)
	assert.Len(t, report.Skipped, 1)
}

func TestSteelIdentifiersAreCaseSensitive(t *testing.T) {
	g := graphtest.Build(t, []records.ProcessRecord{
		{Steel: "AISI 4140", Composition: map[string]float64{"C": 0.4, "Mo": math.NaN()}, Time: 50, Temperature: 200, Hardness: 40},
		{Steel: "aisi 4140", Composition: map[string]float64{"C": 0.9}, Time: 5, Temperature: 200, Hardness: 45},
		{Steel: "AISI 4140", Composition: map[string]float64{"C": 0.5}, Time: 60, Temperature: 210, Hardness: 41},
	})
	steels := g.NodesOfKind(pg.KindSteel)
	require.Len(t, steels, 2)

	upper, ok := g.LookupSteel("AISI 4140")
	require.True(t, ok)
	lower, ok := g.LookupSteel("aisi 4140")
	require.True(t, ok)
	assert.NotEqual(t, upper, lower)

	n, err := g.Node(upper)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"C": 0.4}, n.Steel.Composition, "first record wins, NaN dropped")
	assert.Len(t, g.Successors(upper), 2)

	n, err = g.Node(lower)
	require.NoError(t, err)
	assert.Equal(t, "aisi 4140", n.Steel.Name)
	assert.Equal(t, map[string]float64{"C": 0.9}, n.Steel.Composition)
	assert.Len(t, g.Successors(lower), 1)

	_, ok = g.LookupSteel("Aisi 4140")
	assert.False(t, ok)
}

func TestStats(t *testing.T) {
	g := graphtest.Build(t, graphtest.ScenarioRecords())
	assert.Equal(t, pg.Stats{MaxTime: 20, MaxTemperature: 300, LogMaxTime: math.Log(20)}, g.Stats())

	degenerate := graphtest.Build(t, []records.ProcessRecord{
		{Steel: "S", Time: 0, Temperature: -5, Hardness: 10},
	})
	assert.Equal(t, pg.Stats{MaxTime: 1, MaxTemperature: 1, LogMaxTime: 1}, degenerate.Stats())
}

func TestDescendantsAncestors(t *testing.T) {
	g := graphtest.Build(t, graphtest.ScenarioRecords())
	source, ok := g.Source()
	require.True(t, ok)

	assert.Len(t, g.Descendants(source), g.Len()-1)
	assert.Empty(t, g.Ancestors(source))

	h50, _ := g.Lookup(pg.Key{Kind: pg.KindHardness, Value: 50})
	anc := g.Ancestors(h50)
	assert.Len(t, anc, 6)
	assert.True(t, anc.Has(source))
	assert.False(t, anc.Has(h50))
}

func TestInduceLeavesReceiverIntact(t *testing.T) {
	g := graphtest.Build(t, graphtest.ScenarioRecords())
	before := g.Nodes()

	keep := make(pg.NodeSet)
	for _, n := range g.Nodes() {
		if n.Kind != pg.KindSink && n.Row != 2 && !(n.Kind == pg.KindSteel && n.Steel.Name == "SteelY") && n.Value != 60 {
			keep.Add(n.ID)
		}
	}
	sub := g.Induce(keep)

	assert.Equal(t, before, g.Nodes())
	assert.Equal(t, 13, g.EdgeCount())
	assert.Equal(t, 7, sub.Len())
	// source->steelX, steelX->t0,t1, t0->T0, t1->T1, T0->h50, T1->h50
	assert.Equal(t, 7, sub.EdgeCount())
	_, ok := sub.Sink()
	assert.False(t, ok)
	assert.Equal(t, g.Stats(), sub.Stats())

	for _, n := range sub.Nodes() {
		id, ok := sub.Lookup(n.Key())
		require.True(t, ok)
		assert.Equal(t, n.ID, id)
	}
}

func TestNodeOutOfRange(t *testing.T) {
	g := graphtest.Build(t, graphtest.ScenarioRecords())
	_, err := g.Node(pg.NodeID(g.Len()))
	assert.ErrorIs(t, err, pg.ErrNodeNotFound)
	assert.Nil(t, g.Successors(-1))
	assert.Empty(t, g.Descendants(99))
}

func TestReweightedCopiesGraph(t *testing.T) {
	g := graphtest.Build(t, graphtest.ScenarioRecords())
	w := g.Reweighted(func(e pg.Edge) float64 {
		if e.Time != nil {
			return *e.Time
		}
		return 0
	})
	for _, e := range g.Edges() {
		assert.Zero(t, e.Weight)
	}
	var total float64
	for _, e := range w.Edges() {
		total += e.Weight
	}
	assert.Equal(t, 35.0, total)
	assert.Equal(t, labels(g.Nodes()), labels(w.Nodes()))
}

func TestGraphProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("time and temperature nodes never cross records", prop.ForAll(
		func(seeds []int) bool {
			g := graphtest.Build(t, graphtest.Records(seeds))
			for _, n := range g.NodesOfKind(pg.KindTime) {
				succ := g.Successors(n.ID)
				if len(succ) != 1 || len(g.Predecessors(n.ID)) != 1 {
					return false
				}
				temp, _ := g.Node(succ[0].To)
				if temp.Kind != pg.KindTemperature || temp.Row != n.Row {
					return false
				}
				if len(g.Predecessors(temp.ID)) != 1 || len(g.Successors(temp.ID)) != 1 {
					return false
				}
			}
			return len(g.NodesOfKind(pg.KindTime)) == len(seeds)
		},
		graphtest.GenSeeds(),
	))

	properties.Property("build is deterministic and canonical", prop.ForAll(
		func(seeds []int) bool {
			a := graphtest.Build(t, graphtest.Records(seeds))
			b := graphtest.Build(t, graphtest.Records(seeds))
			c := a.Canonical()
			return assert.ObjectsAreEqual(a.Nodes(), b.Nodes()) &&
				assert.ObjectsAreEqual(a.Edges(), b.Edges()) &&
				assert.ObjectsAreEqual(a.Nodes(), c.Nodes()) &&
				assert.ObjectsAreEqual(a.Edges(), c.Edges())
		},
		graphtest.GenSeeds(),
	))

	properties.TestingRun(t)
}
