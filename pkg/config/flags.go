package config

import (
	"flag"
	"time"
)

// Flags holds command line overrides. Only flags the user actually set are
// applied, so defaults here never mask file or environment values.
type Flags struct {
	fs *flag.FlagSet

	ConfigPath string
	DotEnvPath string

	dataset      string
	queries      string
	outputDir    string
	workers      int
	logLevel     string
	queryTimeout time.Duration
	noCache      bool
	addr         string
}

// RegisterFlags defines the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.ConfigPath, "config", "", "YAML config file")
	fs.StringVar(&f.DotEnvPath, "env-file", ".env", ".env file loaded into the environment")
	fs.StringVar(&f.dataset, "dataset", "", "dataset CSV path or postgres:// URL")
	fs.StringVar(&f.queries, "queries", "", "query file (YAML or JSON)")
	fs.StringVar(&f.outputDir, "output", "", "directory for reports and layouts")
	fs.IntVar(&f.workers, "workers", 0, "concurrent queries in a batch")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.DurationVar(&f.queryTimeout, "timeout", 0, "per query deadline (0 disables)")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable the result cache")
	fs.StringVar(&f.addr, "addr", "", "HTTP listen address")
	return f
}

// Apply copies every flag that was set on the command line into cfg.
// Call it after the flag set has been parsed.
func (f *Flags) Apply(cfg *Config) {
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "dataset":
			cfg.Dataset = f.dataset
		case "queries":
			cfg.Queries = f.queries
		case "output":
			cfg.OutputDir = f.outputDir
		case "workers":
			cfg.Workers = f.workers
		case "log-level":
			cfg.LogLevel = f.logLevel
		case "timeout":
			cfg.QueryTimeout = f.queryTimeout
		case "no-cache":
			cfg.Cache.Enabled = !f.noCache
		case "addr":
			cfg.Server.Addr = f.addr
		}
	})
}

// Load loads the configuration named by the parsed flags and applies the
// flag overrides on top.
func (f *Flags) Load() (Config, error) {
	cfg, err := Load(f.ConfigPath, f.DotEnvPath)
	if err != nil {
		return Config{}, err
	}
	f.Apply(&cfg)
	return cfg, nil
}
