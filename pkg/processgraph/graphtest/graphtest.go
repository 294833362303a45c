// Package graphtest provides record fixtures and generators for tests that
// need a process graph.
package graphtest

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"

	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
	"github.com/dd0wney/cluso-tempering/pkg/records"
)

// ScenarioRecords is the three-record reference dataset:
// (SteelX, 10 s, 200 C, 50 HRC), (SteelX, 20 s, 150 C, 50 HRC), (SteelY, 5 s, 300 C, 60 HRC).
func ScenarioRecords() []records.ProcessRecord {
	return []records.ProcessRecord{
		{Steel: "SteelX", Composition: map[string]float64{"C": 0.4, "Cr": 1.0}, Time: 10, Temperature: 200, Hardness: 50},
		{Steel: "SteelX", Composition: map[string]float64{"C": 0.4, "Cr": 1.0}, Time: 20, Temperature: 150, Hardness: 50},
		{Steel: "SteelY", Composition: map[string]float64{"C": 0.8}, Time: 5, Temperature: 300, Hardness: 60},
	}
}

// Build builds a graph from recs, failing the test on error.
func Build(t testing.TB, recs []records.ProcessRecord) *processgraph.Graph {
	t.Helper()
	g, _, err := processgraph.Build(records.NewStore(recs), processgraph.WithLogger(logging.NewNopLogger()))
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

// Times are spread over several orders of magnitude like real datasets.
var Times = []float64{1, 2, 5, 10, 30, 60, 120, 600, 3600}

// Records derives one record per seed. Values are drawn from small discrete
// sets so generated graphs share steels and hardness values.
func Records(seeds []int) []records.ProcessRecord {
	recs := make([]records.ProcessRecord, len(seeds))
	for i, s := range seeds {
		steel := s % 4
		recs[i] = records.ProcessRecord{
			Steel: fmt.Sprintf("S%d", steel),
			Composition: map[string]float64{
				"C":  0.1 * float64(steel+1),
				"Cr": float64(steel % 2),
			},
			Time:        Times[(s/4)%len(Times)],
			Temperature: float64(100 + 25*((s/36)%17)),
			Hardness:    float64(30 + (s/7)%8),
		}
	}
	return recs
}

// GenSeeds generates between 1 and 24 record seeds.
func GenSeeds() gopter.Gen {
	return gen.SliceOf(gen.IntRange(0, 10000)).Map(func(seeds []int) []int {
		if len(seeds) == 0 {
			return []int{0}
		}
		if len(seeds) > 24 {
			return seeds[:24]
		}
		return seeds
	})
}
