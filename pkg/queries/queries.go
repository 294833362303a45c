// Package queries loads optimization requests from JSON or YAML query files
// and turns loose request payloads into typed optimizer queries.
package queries

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-tempering/pkg/constraints"
	"github.com/dd0wney/cluso-tempering/pkg/logging"
	"github.com/dd0wney/cluso-tempering/pkg/optimizer"
	"github.com/dd0wney/cluso-tempering/pkg/validation"
	"github.com/dd0wney/cluso-tempering/pkg/weighting"
)

var (
	ErrNoValidQueries = errors.New("no valid queries")
	ErrEmptyFilters   = errors.New("empty filters")
	ErrMissingField   = errors.New("missing required field")
	ErrDuplicateName  = errors.New("duplicate query name")
)

// Format selects the query file decoder.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatFor picks a decoder from the file extension. Anything that is not
// .json is read as YAML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

var requiredFields = []string{"query_name", "optimize_by", "filters"}

// Rejected records why a query definition was skipped.
type Rejected struct {
	Index int    `json:"index"`
	Name  string `json:"query_name,omitempty"`
	Err   error  `json:"-"`
}

func (r Rejected) String() string {
	if r.Name == "" {
		return fmt.Sprintf("query #%d: %v", r.Index, r.Err)
	}
	return fmt.Sprintf("query #%d (%q): %v", r.Index, r.Name, r.Err)
}

// LoadReport summarizes a query file.
type LoadReport struct {
	Total    int
	Rejected []Rejected
}

// Load reads the query file at path.
func Load(path string, logger logging.Logger) ([]optimizer.Query, LoadReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("read queries: %w", err)
	}
	return Parse(data, FormatFor(path), logger)
}

// Parse decodes a list of query definitions. Invalid entries are logged at
// WARN and skipped; the error is non-nil only when the document cannot be
// decoded or no entry survives.
func Parse(data []byte, format Format, logger logging.Logger) ([]optimizer.Query, LoadReport, error) {
	logger = logging.OrDefault(logger).With(logging.Component("queries"))

	raw, err := decode(data, format)
	if err != nil {
		return nil, LoadReport{}, err
	}

	report := LoadReport{Total: len(raw)}
	seen := make(map[string]bool, len(raw))
	var out []optimizer.Query
	for i, entry := range raw {
		q, err := fromEntry(entry, logger)
		if err == nil && seen[q.Name] {
			err = fmt.Errorf("%w: %s", ErrDuplicateName, q.Name)
		}
		if err != nil {
			name, _ := entry["query_name"].(string)
			rej := Rejected{Index: i, Name: name, Err: err}
			report.Rejected = append(report.Rejected, rej)
			logger.Warn("skipping invalid query", logging.Int("index", i), logging.Query(name), logging.Error(err))
			continue
		}
		seen[q.Name] = true
		out = append(out, q)
	}

	if len(out) == 0 {
		return nil, report, fmt.Errorf("%w: %d defined, %d rejected", ErrNoValidQueries, report.Total, len(report.Rejected))
	}
	logger.Info("queries loaded", logging.Count(len(out)), logging.Int("rejected", len(report.Rejected)))
	return out, report, nil
}

func decode(data []byte, format Format) ([]map[string]any, error) {
	var raw []map[string]any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json queries: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode yaml queries: %w", err)
		}
	}
	return raw, nil
}

// fromEntry applies the query-file rules on top of Build: every required
// field must be present and filters may not be empty.
func fromEntry(entry map[string]any, logger logging.Logger) (optimizer.Query, error) {
	for _, key := range requiredFields {
		if _, ok := entry[key]; !ok {
			return optimizer.Query{}, fmt.Errorf("%w: %s", ErrMissingField, key)
		}
	}

	var req validation.OptimizeRequest
	var ok bool
	if req.QueryName, ok = entry["query_name"].(string); !ok {
		return optimizer.Query{}, fmt.Errorf("query_name must be a string, got %T", entry["query_name"])
	}
	if req.OptimizeBy, ok = entry["optimize_by"].(string); !ok {
		return optimizer.Query{}, fmt.Errorf("optimize_by must be a string, got %T", entry["optimize_by"])
	}
	if entry["filters"] != nil {
		if req.Filters, ok = entry["filters"].(map[string]any); !ok {
			return optimizer.Query{}, fmt.Errorf("filters must be a mapping, got %T", entry["filters"])
		}
	}
	if raw, present := entry["alpha"]; present && raw != nil {
		alpha, err := constraints.ToFloat(raw)
		if err != nil {
			return optimizer.Query{}, fmt.Errorf("alpha: %w", err)
		}
		req.Alpha = &alpha
	}

	if req.Filters != nil && len(req.Filters) == 0 {
		return optimizer.Query{}, ErrEmptyFilters
	}
	return Build(req, logger)
}

// Build validates req and converts it into a typed query. Empty filters are
// allowed here and match the whole dataset. A missing alpha defaults to
// weighting.DefaultAlpha.
func Build(req validation.OptimizeRequest, logger logging.Logger) (optimizer.Query, error) {
	if err := validation.ValidateOptimizeRequest(&req); err != nil {
		return optimizer.Query{}, err
	}
	mode, err := weighting.ParseMode(req.OptimizeBy)
	if err != nil {
		return optimizer.Query{}, err
	}
	filters, err := constraints.FromMap(req.Filters, logger)
	if err != nil {
		return optimizer.Query{}, err
	}

	alpha := weighting.DefaultAlpha
	if req.Alpha != nil {
		alpha = *req.Alpha
	}
	return optimizer.Query{Name: req.QueryName, Mode: mode, Alpha: alpha, Filters: filters}, nil
}
