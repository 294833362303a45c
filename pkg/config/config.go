// Package config loads tempering settings. Sources are applied in order,
// later ones winning: built-in defaults, a YAML file, a .env file, the
// process environment and finally command line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-tempering/pkg/algorithms"
	"github.com/dd0wney/cluso-tempering/pkg/auth"
	"github.com/dd0wney/cluso-tempering/pkg/optimizer"
	"github.com/dd0wney/cluso-tempering/pkg/parallel"
	"github.com/dd0wney/cluso-tempering/pkg/records"
	"github.com/dd0wney/cluso-tempering/pkg/validation"
)

// Environment variables read by ApplyEnv.
const (
	EnvDataset      = "TEMPERING_DATASET"
	EnvDatasetTable = "TEMPERING_DATASET_TABLE"
	EnvQueries      = "TEMPERING_QUERIES"
	EnvOutputDir    = "TEMPERING_OUTPUT_DIR"
	EnvWorkers      = "TEMPERING_WORKERS"
	EnvQueryTimeout = "TEMPERING_QUERY_TIMEOUT"
	EnvCache        = "TEMPERING_CACHE"
	EnvAddr         = "TEMPERING_ADDR"
	EnvJWTSecret    = "TEMPERING_JWT_SECRET"
	EnvLogLevel     = "LOG_LEVEL"
	EnvPort         = "PORT"
)

var logLevels = []string{"debug", "info", "warn", "warning", "error", "critical"}

// CacheConfig controls the optimizer result cache.
type CacheConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxEntries int  `yaml:"max_entries"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// JWTSecret enables bearer-token auth when set.
	JWTSecret       string        `yaml:"jwt_secret"`
	TokenTTL        time.Duration `yaml:"token_ttl"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	// RateLimit is requests per second per client on POST routes; 0 disables.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

// Config is the full process configuration.
type Config struct {
	// Dataset is a CSV path or a postgres:// URL.
	Dataset      string               `yaml:"dataset"`
	DatasetTable string               `yaml:"dataset_table"`
	Columns      records.Columns      `yaml:"columns"`
	Queries      string               `yaml:"queries"`
	OutputDir    string               `yaml:"output_dir"`
	Workers      int                  `yaml:"workers"`
	LogLevel     string               `yaml:"log_level"`
	Tolerance    algorithms.Tolerance `yaml:"tolerance"`
	QueryTimeout time.Duration        `yaml:"query_timeout"`
	Cache        CacheConfig          `yaml:"cache"`
	Server       ServerConfig         `yaml:"server"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Dataset:      "data/tempering.csv",
		DatasetTable: "tempering_records",
		Columns:      records.DefaultColumns(),
		Queries:      "queries.yaml",
		OutputDir:    "results",
		Workers:      4,
		LogLevel:     "info",
		Tolerance:    algorithms.DefaultTolerance,
		QueryTimeout: 30 * time.Second,
		Cache:        CacheConfig{Enabled: true, MaxEntries: optimizer.DefaultCacheEntries},
		Server: ServerConfig{
			Addr:            ":8080",
			TokenTTL:        24 * time.Hour,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
	}
}

// Decode overlays YAML from r onto cfg. Unknown keys are an error.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// LoadFile returns the defaults overlaid with the YAML file at path.
// An empty path yields the defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := Decode(bytes.NewReader(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is
// not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment variables read through getenv onto cfg.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str(EnvDataset, &cfg.Dataset)
	str(EnvDatasetTable, &cfg.DatasetTable)
	str(EnvQueries, &cfg.Queries)
	str(EnvOutputDir, &cfg.OutputDir)
	str(EnvLogLevel, &cfg.LogLevel)
	str(EnvJWTSecret, &cfg.Server.JWTSecret)
	if port := strings.TrimSpace(getenv(EnvPort)); port != "" {
		cfg.Server.Addr = ":" + port
	}
	str(EnvAddr, &cfg.Server.Addr)

	var errs []error
	if v := strings.TrimSpace(getenv(EnvWorkers)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvWorkers, err))
		} else {
			cfg.Workers = n
		}
	}
	if v := strings.TrimSpace(getenv(EnvQueryTimeout)); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvQueryTimeout, err))
		} else {
			cfg.QueryTimeout = d
		}
	}
	if v := strings.TrimSpace(getenv(EnvCache)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvCache, err))
		} else {
			cfg.Cache.Enabled = b
		}
	}
	return errors.Join(errs...)
}

// Load applies the YAML file, the .env file and the process environment.
// Flags are applied by the caller afterwards.
func Load(path, dotenv string) (Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := LoadDotEnv(dotenv); err != nil {
		return Config{}, err
	}
	if err := ApplyEnv(&cfg, os.Getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) common(cv *validation.ConfigValidator) {
	cv.Required("Dataset", c.Dataset).
		OneOf("LogLevel", strings.ToLower(c.LogLevel), logLevels).
		NonNegativeFloat("Tolerance.Abs", c.Tolerance.Abs).
		NonNegativeFloat("Tolerance.Rel", c.Tolerance.Rel).
		MinDuration("QueryTimeout", c.QueryTimeout, 0).
		When(c.Cache.Enabled, func(cv *validation.ConfigValidator) {
			cv.Positive("Cache.MaxEntries", c.Cache.MaxEntries)
		}).
		When(isPostgres(c.Dataset), func(cv *validation.ConfigValidator) {
			cv.Required("DatasetTable", c.DatasetTable)
		})
}

// ValidateBatch checks the settings used by a batch run.
func (c Config) ValidateBatch() error {
	cv := validation.NewConfigValidator("Config")
	c.common(cv)
	cv.Required("Queries", c.Queries).
		Required("OutputDir", c.OutputDir).
		RangeInt("Workers", c.Workers, 1, parallel.MaxWorkers)
	return cv.Validate()
}

// ValidateServe checks the settings used by the HTTP server.
func (c Config) ValidateServe() error {
	cv := validation.NewConfigValidator("Config")
	c.common(cv)
	s := c.Server
	cv.Required("Server.Addr", s.Addr).
		MinDuration("Server.ReadTimeout", s.ReadTimeout, time.Second).
		MinDuration("Server.WriteTimeout", s.WriteTimeout, time.Second).
		MinDuration("Server.ShutdownTimeout", s.ShutdownTimeout, 0).
		NonNegativeFloat("Server.RateLimit", s.RateLimit).
		When(s.JWTSecret != "", func(cv *validation.ConfigValidator) {
			cv.MinLength("Server.JWTSecret", s.JWTSecret, auth.MinSecretLength)
		}).
		When(s.RateLimit > 0, func(cv *validation.ConfigValidator) {
			cv.Positive("Server.RateBurst", s.RateBurst)
		})
	return cv.Validate()
}

// ValidateToken checks the settings needed to mint API tokens.
func (c Config) ValidateToken() error {
	return validation.NewConfigValidator("Config").
		Required("Server.JWTSecret", c.Server.JWTSecret).
		MinLength("Server.JWTSecret", c.Server.JWTSecret, auth.MinSecretLength).
		MinDuration("Server.TokenTTL", c.Server.TokenTTL, time.Minute).
		Validate()
}

func isPostgres(location string) bool {
	return strings.HasPrefix(location, "postgres://") || strings.HasPrefix(location, "postgresql://")
}
