package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Columns maps dataset header names onto record fields.
type Columns struct {
	Steel       string `yaml:"steel"`
	Time        string `yaml:"time"`
	Temperature string `yaml:"temperature"`
	Hardness    string `yaml:"hardness"`
	// CompositionMarker identifies composition columns, e.g. "C (%wt)".
	CompositionMarker string `yaml:"composition_marker"`
}

// DefaultColumns matches the header of the published tempering dataset.
func DefaultColumns() Columns {
	return Columns{
		Steel:             "Steel type",
		Time:              "Tempering time (s)",
		Temperature:       "Tempering temperature (ºC)",
		Hardness:          "Final hardness (HRC) - post tempering",
		CompositionMarker: "(%wt)",
	}
}

// ElementSymbol strips the composition marker from a header: "Cr (%wt)" -> "Cr".
func (c Columns) ElementSymbol(header string) string {
	return strings.TrimSpace(strings.Replace(header, c.CompositionMarker, "", 1))
}

// LoadFile reads a CSV dataset from disk.
func LoadFile(path string, cols Columns) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	store, err := LoadCSV(f, cols)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return store, nil
}

// LoadCSV parses a CSV dataset. Header names are whitespace-trimmed, fully
// empty rows are dropped and unparseable numbers become NaN so the graph
// builder can skip the row with a diagnostic.
func LoadCSV(r io.Reader, cols Columns) (*Store, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRecords
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}

	var missing []string
	for _, name := range []string{cols.Steel, cols.Time, cols.Temperature, cols.Hardness} {
		if _, ok := idx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &ColumnError{Missing: missing, Available: header}
	}

	compCols := make(map[int]string)
	if cols.CompositionMarker != "" {
		for i, h := range header {
			if strings.Contains(h, cols.CompositionMarker) {
				compCols[i] = cols.ElementSymbol(h)
			}
		}
	}

	var recs []ProcessRecord
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if blank(row) {
			continue
		}

		rec := ProcessRecord{
			Steel:       strings.TrimSpace(cell(row, idx[cols.Steel])),
			Time:        number(cell(row, idx[cols.Time])),
			Temperature: number(cell(row, idx[cols.Temperature])),
			Hardness:    number(cell(row, idx[cols.Hardness])),
			Composition: make(map[string]float64, len(compCols)),
		}
		for i, sym := range compCols {
			if v := number(cell(row, i)); finite(v) {
				rec.Composition[sym] = v
			}
		}
		recs = append(recs, rec)
	}

	if len(recs) == 0 {
		return nil, ErrNoRecords
	}
	return NewStore(recs), nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func number(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
