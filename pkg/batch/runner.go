// Package batch runs a list of queries against one engine, writing a report
// and a layout file per query. A failing query never stops the batch.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/optimizer"
	"github.com/dd0wney/cluso-tempering/pkg/parallel"
	"github.com/dd0wney/cluso-tempering/pkg/report"
	"github.com/dd0wney/cluso-tempering/pkg/visualization"
)

// SummaryFile is written to the output directory after every run.
const SummaryFile = "batch_summary.json"

// Outcome is the result of one query of a batch, in input order.
type Outcome struct {
	report.Entry
	Index      int
	Duration   time.Duration
	ReportPath string
	LayoutPath string
	// WriteErr is set when the query ran but its files could not be written.
	WriteErr error
}

// Runner executes batches. It is safe to reuse across runs.
type Runner struct {
	engine    *optimizer.Engine
	workers   int
	outputDir string
	layout    visualization.Layout
	logger    logging.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers sets how many queries run concurrently.
func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

// WithOutputDir enables report and layout files under dir.
func WithOutputDir(dir string) Option {
	return func(r *Runner) { r.outputDir = dir }
}

// WithLayout replaces the default layered layout.
func WithLayout(l visualization.Layout) Option {
	return func(r *Runner) { r.layout = l }
}

func WithLogger(l logging.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a runner over engine.
func NewRunner(engine *optimizer.Engine, opts ...Option) *Runner {
	r := &Runner{engine: engine, workers: 1}
	for _, opt := range opts {
		opt(r)
	}
	if r.layout == nil {
		r.layout = visualization.NewLayeredLayout(visualization.DefaultLayoutConfig())
	}
	r.logger = logging.OrDefault(r.logger).With(logging.Component("batch"))
	return r
}

// Run executes queries and returns one Outcome per query in input order.
// The error is non-nil only when the batch itself could not proceed: the
// output directory is unusable or ctx ended before every query was queued.
func (r *Runner) Run(ctx context.Context, queries []optimizer.Query) ([]Outcome, error) {
	if r.outputDir != "" {
		if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	pool, err := parallel.NewWorkerPool(r.workers, parallel.WithLogger(r.logger))
	if err != nil {
		return nil, err
	}

	timer := logging.StartTimer(r.logger, "batch", logging.Count(len(queries)), logging.Int("workers", pool.Workers()))
	outcomes := make([]Outcome, len(queries))
	var submitErr error
	for i, q := range queries {
		outcomes[i] = Outcome{Index: i, Entry: report.Entry{Query: q}}
		if submitErr != nil {
			outcomes[i].Err = r.notRun(q, submitErr)
			continue
		}
		out := &outcomes[i]
		if err := pool.SubmitContext(ctx, func() { r.execute(ctx, out) }); err != nil {
			submitErr = err
			out.Err = r.notRun(q, err)
		}
	}
	pool.Wait()

	failed := 0
	for _, o := range outcomes {
		if !o.OK() {
			failed++
		}
	}
	if r.outputDir != "" {
		if err := writeSummary(filepath.Join(r.outputDir, SummaryFile), outcomes); err != nil {
			r.logger.Warn("summary not written", logging.Error(err))
		}
	}
	if submitErr != nil {
		timer.EndWarn(submitErr, logging.Int("failed", failed))
		return outcomes, fmt.Errorf("batch interrupted: %w", submitErr)
	}
	timer.End(logging.Int("failed", failed))
	return outcomes, nil
}

func (r *Runner) notRun(q optimizer.Query, err error) error {
	return optimizer.NewError(optimizer.KindTimeout, "batch").Query(q).Context("query not started").Cause(err).Err()
}

func (r *Runner) execute(ctx context.Context, out *Outcome) {
	start := time.Now()
	out.Result, out.Err = r.engine.Optimize(ctx, out.Query)
	out.Duration = time.Since(start)

	if out.Err != nil && !optimizer.IsRecoverable(out.Err) {
		r.logger.Error("query failed", logging.Query(out.Query.Name), logging.Error(out.Err))
	}
	if r.outputDir == "" {
		return
	}
	out.WriteErr = r.writeFiles(out)
	if out.WriteErr != nil {
		r.logger.Warn("query output not written", logging.Query(out.Query.Name), logging.Error(out.WriteErr))
	}
}

func (r *Runner) writeFiles(out *Outcome) error {
	stem := FileStem(out.Query.Name, out.Index)
	out.ReportPath = filepath.Join(r.outputDir, stem+"_report.txt")
	if err := report.WriteFile(out.ReportPath, out.Entry); err != nil {
		return err
	}

	if !out.OK() || out.Result.Subgraph == nil || out.Result.Subgraph.Len() == 0 {
		return nil
	}
	v, err := visualization.Build(r.layout, report.Title(out.Result), out.Result.Subgraph, out.Result.PathIDs)
	if err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	out.LayoutPath = filepath.Join(r.outputDir, stem+"_layout.json")
	return v.WriteFile(out.LayoutPath)
}

// FileStem turns a query name into a file name prefix. Path separators and
// blanks are replaced; an empty name falls back to the query index.
func FileStem(name string, index int) string {
	stem := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	stem = strings.Trim(stem, ".")
	if stem == "" {
		return fmt.Sprintf("query_%d", index)
	}
	return stem
}

type summaryEntry struct {
	Index   int     `json:"index"`
	Name    string  `json:"query_name"`
	Mode    string  `json:"optimize_by"`
	Status  string  `json:"status"`
	Error   string  `json:"error,omitempty"`
	Cost    float64 `json:"cost,omitempty"`
	Paths   int     `json:"paths"`
	QueryID string  `json:"query_id,omitempty"`
	Report  string  `json:"report,omitempty"`
	Layout  string  `json:"layout,omitempty"`
	Millis  float64 `json:"duration_ms"`
}

func writeSummary(path string, outcomes []Outcome) error {
	entries := make([]summaryEntry, len(outcomes))
	for i, o := range outcomes {
		e := summaryEntry{
			Index:  o.Index,
			Name:   o.Query.Name,
			Mode:   o.Query.Mode.String(),
			Status: "success",
			Millis: float64(o.Duration.Microseconds()) / 1000,
		}
		if o.ReportPath != "" {
			e.Report = filepath.Base(o.ReportPath)
		}
		if o.LayoutPath != "" {
			e.Layout = filepath.Base(o.LayoutPath)
		}
		if o.OK() {
			e.Cost, e.Paths, e.QueryID = o.Result.Cost, len(o.Result.Paths), o.Result.QueryID
		} else if o.Err != nil {
			e.Status, e.Error = optimizer.KindOf(o.Err).String(), o.Err.Error()
		}
		entries[i] = e
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Entries returns the report entries of outcomes, for RenderSummary.
func Entries(outcomes []Outcome) []report.Entry {
	out := make([]report.Entry, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Entry
	}
	return out
}
