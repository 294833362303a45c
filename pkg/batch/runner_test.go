package batch

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-tempering/pkg/constraints"
	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/optimizer"
	"github.com/dd0wney/cluso-tempering/pkg/processgraph/graphtest"
	"github.com/dd0wney/cluso-tempering/pkg/weighting"
)

func newEngine(t *testing.T) *optimizer.Engine {
	t.Helper()
	e, err := optimizer.NewEngine(graphtest.Build(t, graphtest.ScenarioRecords()),
		optimizer.WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	return e
}

func scenarioQueries() []optimizer.Query {
	return []optimizer.Query{
		{Name: "a", Mode: weighting.ModeTime, Filters: constraints.Filters{Hardness: &constraints.Range{Min: 45, Max: 55}}},
		{Name: "c", Mode: weighting.ModeTime, Filters: constraints.Filters{Hardness: &constraints.Range{Min: 99, Max: 100}}},
		{Name: "b", Mode: weighting.ModeTemperature},
		{
			Name: "d",
			Mode: weighting.ModeTime,
			Filters: constraints.Filters{Composition: map[string]constraints.CompositionFilter{
				"c": {Op: constraints.OpGreater, Val: 10},
			}},
		},
	}
}

func TestRun_ContinuesPastFailures(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r := NewRunner(newEngine(t), WithWorkers(3), WithOutputDir(dir), WithLogger(logging.NewNopLogger()))

	outcomes, err := r.Run(context.Background(), scenarioQueries())
	require.NoError(t, err)
	require.Len(t, outcomes, 4)

	for i, o := range outcomes {
		assert.Equal(t, i, o.Index)
		assert.NoError(t, o.WriteErr)
		assert.FileExists(t, o.ReportPath)
	}

	assert.True(t, outcomes[0].OK())
	assert.Equal(t, 10.0, outcomes[0].Result.Cost)
	assert.True(t, optimizer.IsNoMatch(outcomes[1].Err))
	assert.True(t, outcomes[2].OK())
	assert.Equal(t, 150.0, outcomes[2].Result.Cost)
	assert.True(t, optimizer.IsNoMatch(outcomes[3].Err))

	assert.Equal(t, filepath.Join(dir, "a_report.txt"), outcomes[0].ReportPath)
	assert.Equal(t, filepath.Join(dir, "a_layout.json"), outcomes[0].LayoutPath)
	assert.FileExists(t, outcomes[0].LayoutPath)
	assert.Empty(t, outcomes[1].LayoutPath, "failed queries get no layout")

	data, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)
	var summary []summaryEntry
	require.NoError(t, json.Unmarshal(data, &summary))
	require.Len(t, summary, 4)
	assert.Equal(t, "success", summary[0].Status)
	assert.Equal(t, "a_layout.json", summary[0].Layout)
	assert.Equal(t, "no_match", summary[1].Status)
	assert.NotEmpty(t, summary[1].Error)
	assert.Equal(t, "c_report.txt", summary[1].Report)

	entries := Entries(outcomes)
	require.Len(t, entries, 4)
	assert.Equal(t, "b", entries[2].Query.Name)
}

func TestRun_WithoutOutputDir(t *testing.T) {
	r := NewRunner(newEngine(t), WithLogger(logging.NewNopLogger()))
	outcomes, err := r.Run(context.Background(), scenarioQueries()[:1])
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Empty(t, outcomes[0].ReportPath)
	assert.True(t, outcomes[0].OK())
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(newEngine(t), WithLogger(logging.NewNopLogger()))
	outcomes, err := r.Run(ctx, scenarioQueries())
	require.Len(t, outcomes, 4)
	for _, o := range outcomes {
		assert.False(t, o.OK())
		assert.Equal(t, optimizer.KindTimeout, optimizer.KindOf(o.Err))
	}
	// The first submissions may land in the queue before cancellation is seen.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestRun_BadOutputDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	_, err := NewRunner(newEngine(t), WithOutputDir(filepath.Join(file, "sub"))).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestFileStem(t *testing.T) {
	tests := []struct {
		name  string
		index int
		want  string
	}{
		{"plain", 0, "plain"},
		{" spaced name ", 1, "spaced name"},
		{"a/b\\c:d", 2, "a_b_c_d"},
		{"..", 3, "query_3"},
		{"", 4, "query_4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileStem(tt.name, tt.index), tt.name)
	}
}
