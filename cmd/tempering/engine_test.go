package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-tempering/pkg/config"
	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/metrics"
	"github.com/dd0wney/cluso-tempering/pkg/optimizer"
	"github.com/dd0wney/cluso-tempering/pkg/weighting"
)

const datasetCSV = `Steel type,C (%wt),Tempering time (s),Tempering temperature (ºC),Final hardness (HRC) - post tempering
SteelX,0.4,10,200,50
SteelX,0.4,20,150,50
SteelY,0.8,5,300,60
SteelY,0.8,?,300,61
`

func datasetConfig(t *testing.T) config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tempering.csv")
	require.NoError(t, os.WriteFile(path, []byte(datasetCSV), 0o600))
	cfg := config.Default()
	cfg.Dataset = path
	return cfg
}

func logMessages(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	var msgs []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e logging.LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e), line)
		msgs = append(msgs, e.Message)
	}
	return msgs
}

func TestLoadGraph(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewJSONLogger(&buf, logging.InfoLevel)
	reg := metrics.NewRegistry()

	g, err := loadGraph(context.Background(), datasetConfig(t), logger, reg)
	require.NoError(t, err)
	assert.Equal(t, 13, g.EdgeCount())

	built := 0
	for _, msg := range logMessages(t, &buf) {
		if msg == "graph built" {
			built++
		}
	}
	assert.Equal(t, 1, built, "one build summary per load")

	var m dto.Metric
	gauge, err := reg.GraphNodes.GetMetricWithLabelValues("steel")
	require.NoError(t, err)
	require.NoError(t, gauge.Write(&m))
	assert.Equal(t, 2.0, m.Gauge.GetValue())
	require.NoError(t, reg.BuildSkippedRowsTotal.Write(&m))
	assert.Equal(t, 1.0, m.Counter.GetValue())
}

func TestLoadGraphMissingDataset(t *testing.T) {
	cfg := config.Default()
	cfg.Dataset = filepath.Join(t.TempDir(), "absent.csv")
	_, err := loadGraph(context.Background(), cfg, logging.NewNopLogger(), nil)
	assert.Error(t, err)
}

func TestLoadEngine(t *testing.T) {
	cfg := datasetConfig(t)
	e, err := loadEngine(context.Background(), cfg, logging.NewNopLogger(), nil)
	require.NoError(t, err)
	require.NotNil(t, e.Cache())

	res, err := e.Optimize(context.Background(), optimizer.Query{Name: "fast", Mode: weighting.ModeTime})
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Cost)

	cfg.Cache.Enabled = false
	e, err = loadEngine(context.Background(), cfg, logging.NewNopLogger(), nil)
	require.NoError(t, err)
	assert.Nil(t, e.Cache())
}
