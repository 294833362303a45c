// Package records holds the cleaned tempering dataset: one ProcessRecord per
// observed process instance, in load order.
package records

import (
	"math"
	"sort"
	"strings"
)

// ProcessRecord is one observed tempering run.
type ProcessRecord struct {
	Row         int                `json:"row"`
	Steel       string             `json:"steel"`
	Composition map[string]float64 `json:"composition"`
	Time        float64            `json:"time_s"`
	Temperature float64            `json:"temperature_c"`
	Hardness    float64            `json:"hardness_hrc"`
}

// Valid reports whether the record carries every field the graph needs.
// The returned reason is empty for valid records.
func (r ProcessRecord) Valid() (bool, string) {
	switch {
	case strings.TrimSpace(r.Steel) == "":
		return false, "missing steel identifier"
	case !finite(r.Time):
		return false, "missing tempering time"
	case r.Time < 0:
		return false, "negative tempering time"
	case !finite(r.Temperature):
		return false, "missing tempering temperature"
	case !finite(r.Hardness):
		return false, "missing hardness"
	}
	return true, ""
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Store is a read-only ordered collection of records.
type Store struct {
	records  []ProcessRecord
	elements []string
}

// NewStore copies records into a store and renumbers Row to the load position.
func NewStore(recs []ProcessRecord) *Store {
	s := &Store{records: make([]ProcessRecord, len(recs))}
	seen := make(map[string]bool)
	for i, r := range recs {
		comp := make(map[string]float64, len(r.Composition))
		for k, v := range r.Composition {
			comp[k] = v
			if !seen[k] {
				seen[k] = true
				s.elements = append(s.elements, k)
			}
		}
		r.Composition = comp
		r.Row = i
		s.records[i] = r
	}
	sort.Strings(s.elements)
	return s
}

// Len returns the number of records
func (s *Store) Len() int {
	return len(s.records)
}

// At returns the record at position i
func (s *Store) At(i int) ProcessRecord {
	return s.records[i]
}

// All returns a copy of the records slice. Composition maps are shared and must not be modified.
func (s *Store) All() []ProcessRecord {
	out := make([]ProcessRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Elements returns the sorted union of composition symbols
func (s *Store) Elements() []string {
	out := make([]string, len(s.elements))
	copy(out, s.elements)
	return out
}
