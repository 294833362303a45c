package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-tempering/pkg/api"
	"github.com/dd0wney/cluso-tempering/pkg/api/middleware"
	"github.com/dd0wney/cluso-tempering/pkg/auth"
	"github.com/dd0wney/cluso-tempering/pkg/batch"
	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/metrics"
	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
	"github.com/dd0wney/cluso-tempering/pkg/queries"
	"github.com/dd0wney/cluso-tempering/pkg/report"
	"github.com/dd0wney/cluso-tempering/pkg/server"
)

var errQueriesFailed = errors.New("one or more queries failed")

func runBatch(args []string) error {
	cfg, err := parseConfig("run", args, nil)
	if err != nil {
		return err
	}
	if err := cfg.ValidateBatch(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := loadEngine(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	qs, rep, err := queries.Load(cfg.Queries, logger)
	if err != nil {
		return err
	}
	for _, r := range rep.Rejected {
		fmt.Fprintf(os.Stderr, "skipped %s\n", r)
	}

	runner := batch.NewRunner(engine,
		batch.WithWorkers(cfg.Workers),
		batch.WithOutputDir(cfg.OutputDir),
		batch.WithLogger(logger))
	outcomes, runErr := runner.Run(ctx, qs)
	if outcomes != nil {
		fmt.Print(report.RenderSummary(batch.Entries(outcomes)))
	}
	if runErr != nil {
		return runErr
	}
	for _, o := range outcomes {
		if !o.OK() {
			return errQueriesFailed
		}
	}
	return nil
}

func runServe(args []string) error {
	cfg, err := parseConfig("serve", args, nil)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.DefaultRegistry()
	engine, err := loadEngine(ctx, cfg, logger, reg)
	if err != nil {
		return err
	}

	apiCfg := api.Config{
		Engine:       engine,
		Metrics:      reg,
		Logger:       logger,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}
	if cfg.Server.JWTSecret != "" {
		tokens, err := auth.NewJWTManager(cfg.Server.JWTSecret, cfg.Server.TokenTTL)
		if err != nil {
			return err
		}
		apiCfg.Tokens = tokens
	} else {
		logger.Warn("no JWT secret configured, API is unauthenticated")
	}
	if cfg.Server.RateLimit > 0 {
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.Server.RateLimit
		rl.BurstSize = cfg.Server.RateBurst
		apiCfg.RateLimit = rl
	}

	srv, err := api.NewServer(apiCfg)
	if err != nil {
		return err
	}

	gs := server.NewGracefulServer(cfg.Server.Addr, srv.Handler(),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithLogger(logger))
	gs.SetReloadFunc(func() error {
		next, err := loadEngine(ctx, cfg, logger, reg)
		if err != nil {
			return err
		}
		return srv.SwapEngine(next)
	})
	go gs.WatchReload(ctx)

	logger.Info("listening", logging.String("addr", cfg.Server.Addr),
		logging.Bool("auth", apiCfg.Tokens != nil))
	return gs.Run(ctx)
}

func runStats(args []string) error {
	cfg, err := parseConfig("stats", args, nil)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	g, err := loadGraph(context.Background(), cfg, logger, nil)
	if err != nil {
		return err
	}

	counts := g.CountByKind()
	for _, kind := range processgraph.Kinds() {
		fmt.Printf("%-22s %d\n", kind, counts[kind])
	}
	s := g.Stats()
	fmt.Printf("%-22s %d\n", "edges", g.EdgeCount())
	fmt.Printf("%-22s %g\n", "max time (s)", s.MaxTime)
	fmt.Printf("%-22s %g\n", "max temperature (C)", s.MaxTemperature)
	return nil
}

func runToken(args []string) error {
	var subject, role string
	cfg, err := parseConfig("token", args, func(fs *flag.FlagSet) {
		fs.StringVar(&subject, "subject", "", "token subject")
		fs.StringVar(&role, "role", auth.RoleOperator, "operator or viewer")
	})
	if err != nil {
		return err
	}
	if err := cfg.ValidateToken(); err != nil {
		return err
	}

	m, err := auth.NewJWTManager(cfg.Server.JWTSecret, cfg.Server.TokenTTL)
	if err != nil {
		return err
	}
	token, err := m.GenerateToken(subject, role)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
