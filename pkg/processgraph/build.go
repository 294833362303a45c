package processgraph

import (
	"math"

	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/records"
)

// SkippedRow is a record the builder left out.
type SkippedRow struct {
	Row    int    `json:"row"`
	Steel  string `json:"steel,omitempty"`
	Reason string `json:"reason"`
}

// BuildReport summarizes a build.
type BuildReport struct {
	Records int          `json:"records"`
	Used    int          `json:"used"`
	Skipped []SkippedRow `json:"skipped,omitempty"`
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	logger logging.Logger
}

// WithLogger routes build diagnostics to logger.
func WithLogger(logger logging.Logger) BuildOption {
	return func(c *buildConfig) {
		c.logger = logger
	}
}

// Build constructs the master graph from store. Records missing a required
// field are skipped and reported; the build fails only when no steel survives.
// The returned graph is canonical.
func Build(store *records.Store, opts ...BuildOption) (*Graph, BuildReport, error) {
	cfg := buildConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := logging.OrDefault(cfg.logger).With(logging.Component("graph-builder"))

	report := BuildReport{Records: store.Len()}
	valid := make([]records.ProcessRecord, 0, store.Len())
	for _, rec := range store.All() {
		if ok, reason := rec.Valid(); !ok {
			report.Skipped = append(report.Skipped, SkippedRow{Row: rec.Row, Steel: rec.Steel, Reason: reason})
			logger.Warn("skipping record", logging.Row(rec.Row), logging.Steel(rec.Steel), logging.String("reason", reason))
			continue
		}
		valid = append(valid, rec)
	}
	report.Used = len(valid)
	if len(valid) == 0 {
		return nil, report, ErrEmptyGraph
	}

	g := newGraph(2+4*len(valid), computeStats(valid, logger))
	source := g.addNode(Node{Kind: KindSource, Row: -1, Label: SourceLabel})
	sink := g.addNode(Node{Kind: KindSink, Row: -1, Label: SinkLabel})

	for _, rec := range valid {
		steelID, created := g.steelNode(rec)
		if created {
			g.addEdge(Edge{From: source, To: steelID})
		}

		t := rec.Time
		timeID := g.addNode(Node{Kind: KindTime, Row: rec.Row, Value: t, Label: timeLabel(t, rec.Row)})
		g.addEdge(Edge{From: steelID, To: timeID, Time: &t})

		temp := rec.Temperature
		tempID := g.addNode(Node{Kind: KindTemperature, Row: rec.Row, Value: temp, Label: temperatureLabel(temp, rec.Row)})
		g.addEdge(Edge{From: timeID, To: tempID, Temperature: &temp})

		hardID := g.addNode(Node{Kind: KindHardness, Row: -1, Value: rec.Hardness, Label: hardnessLabel(rec.Hardness)})
		g.addEdge(Edge{From: tempID, To: hardID})
		g.addEdge(Edge{From: hardID, To: sink})
	}

	c := g.Canonical()
	counts := c.CountByKind()
	logger.Info("graph built",
		logging.Int("records", report.Records),
		logging.Int("skipped", len(report.Skipped)),
		logging.Int("steels", counts[KindSteel]),
		logging.Int("hardness_values", counts[KindHardness]),
		logging.Int("edges", c.EdgeCount()),
	)
	return c, report, nil
}

// steelNode returns the node for rec's steel identifier, creating it with
// the composition of the first record seen for that identifier.
func (g *Graph) steelNode(rec records.ProcessRecord) (NodeID, bool) {
	if id, ok := g.LookupSteel(rec.Steel); ok {
		return id, false
	}
	comp := make(map[string]float64, len(rec.Composition))
	for k, v := range rec.Composition {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			comp[k] = v
		}
	}
	steel := &Steel{Name: rec.Steel, Fold: Fold(rec.Steel), Composition: comp}
	return g.addNode(Node{Kind: KindSteel, Row: -1, Steel: steel, Label: steelLabel(rec.Steel)}), true
}

func computeStats(recs []records.ProcessRecord, logger logging.Logger) Stats {
	var maxTime, maxTemp float64
	for _, r := range recs {
		maxTime = math.Max(maxTime, r.Time)
		maxTemp = math.Max(maxTemp, r.Temperature)
	}
	if maxTime <= 0 {
		maxTime = 1.0
	}
	if maxTemp <= 0 {
		maxTemp = 1.0
	}
	logMax := math.Log(math.Max(maxTime, 1))
	if logMax <= 0 {
		logger.Warn("degenerate time range, log normalization floored",
			logging.Float64("max_time", maxTime))
		logMax = 1.0
	}
	return Stats{MaxTime: maxTime, MaxTemperature: maxTemp, LogMaxTime: logMax}
}
