package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/dd0wney/cluso-tempering/pkg/config"
	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/metrics"
	"github.com/dd0wney/cluso-tempering/pkg/optimizer"
	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
	"github.com/dd0wney/cluso-tempering/pkg/records"
)

// parseConfig parses args with the shared flags plus any registered by
// extra, then loads and layers the configuration.
func parseConfig(name string, args []string, extra func(*flag.FlagSet)) (config.Config, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}
	return flags.Load()
}

func newLogger(cfg config.Config) logging.Logger {
	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	logging.SetDefaultLogger(logger)
	return logger
}

// loadGraph reads the dataset and builds the master graph.
func loadGraph(ctx context.Context, cfg config.Config, logger logging.Logger, reg *metrics.Registry) (*processgraph.Graph, error) {
	start := time.Now()
	timer := logging.StartTimer(logger, "load dataset", logging.Path(cfg.Dataset))
	store, err := records.Open(ctx, cfg.Dataset, cfg.DatasetTable, cfg.Columns)
	if err != nil {
		timer.EndError(err)
		return nil, err
	}
	timer.End(logging.Count(store.Len()))

	g, rep, err := processgraph.Build(store, processgraph.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if reg != nil {
		nodes := make(map[string]int)
		for kind, n := range g.CountByKind() {
			nodes[kind.String()] = n
		}
		reg.RecordGraphBuild(nodes, g.EdgeCount(), len(rep.Skipped), time.Since(start))
	}
	return g, nil
}

// loadEngine builds a fresh graph and wraps it in an engine configured
// from cfg.
func loadEngine(ctx context.Context, cfg config.Config, logger logging.Logger, reg *metrics.Registry) (*optimizer.Engine, error) {
	g, err := loadGraph(ctx, cfg, logger, reg)
	if err != nil {
		return nil, err
	}
	opts := []optimizer.Option{
		optimizer.WithTolerance(cfg.Tolerance),
		optimizer.WithTimeout(cfg.QueryTimeout),
		optimizer.WithLogger(logger),
	}
	if reg != nil {
		opts = append(opts, optimizer.WithMetrics(reg))
	}
	if cfg.Cache.Enabled {
		opts = append(opts, optimizer.WithCache(optimizer.NewCache(cfg.Cache.MaxEntries)))
	}
	return optimizer.NewEngine(g, opts...)
}
