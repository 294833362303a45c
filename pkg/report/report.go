// Package report writes the per-query technical report and the terminal
// summary of a batch run.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dd0wney/cluso-tempering/pkg/constraints"
	"github.com/dd0wney/cluso-tempering/pkg/optimizer"
	"github.com/dd0wney/cluso-tempering/pkg/processgraph"
	"github.com/dd0wney/cluso-tempering/pkg/weighting"
)

const (
	rule    = "============================================================"
	subRule = "------------------------------"
)

// Entry is one query and its outcome. Exactly one of Result and Err is set.
type Entry struct {
	Query  optimizer.Query
	Result *optimizer.Result
	Err    error
}

// OK reports whether the query produced a result.
func (e Entry) OK() bool {
	return e.Err == nil && e.Result != nil
}

// WriteFile writes the text report for e to path.
func WriteFile(path string, e Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := WriteText(f, e); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteText renders the technical report for e.
func WriteText(w io.Writer, e Entry) error {
	bw := bufio.NewWriter(w)
	q := e.Query

	fmt.Fprintln(bw, rule)
	fmt.Fprintf(bw, "TECHNICAL REPORT: %s\n", q.Name)
	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "1. SEARCH PARAMETERS")
	fmt.Fprintln(bw, subRule)
	fmt.Fprintf(bw, "Optimization Goal: %s (Minimize)\n", strings.ToUpper(q.Mode.String()))
	if q.Mode == weighting.ModeBalanced {
		fmt.Fprintf(bw, "Alpha (Time Weight): %s\n", processgraph.FormatNumber(q.Alpha))
		fmt.Fprintf(bw, "Beta (Temp Weight): %.1f\n", 1-q.Alpha)
	}
	fmt.Fprintln(bw, "Filters Applied:")
	lines := filterLines(q.Filters)
	if len(lines) == 0 {
		fmt.Fprintln(bw, "  (none)")
	}
	for _, l := range lines {
		fmt.Fprintf(bw, "  - %s\n", l)
	}
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "2. OPTIMIZATION RESULTS (DIJKSTRA)")
	fmt.Fprintln(bw, subRule)
	if !e.OK() {
		fmt.Fprintln(bw, "STATUS: NOT FOUND")
		if kind := optimizer.KindOf(e.Err); kind != 0 {
			fmt.Fprintf(bw, "Kind: %s\n", kind)
		}
		fmt.Fprintf(bw, "Reason: %v\n", e.Err)
	} else {
		writeResult(bw, q.Mode, e.Result)
	}

	fmt.Fprintln(bw, rule)
	return bw.Flush()
}

func writeResult(w io.Writer, mode weighting.Mode, r *optimizer.Result) {
	if r.QueryID != "" {
		fmt.Fprintf(w, "Query ID: %s\n", r.QueryID)
	}
	fmt.Fprintf(w, "STATUS: %d OPTIMAL SOLUTION(S) FOUND\n", len(r.Paths))
	fmt.Fprintf(w, "Total Cost: %.2f %s\n\n", r.Cost, mode.Unit())

	for i, path := range r.Paths {
		fmt.Fprintf(w, "--- OPTION #%d ---\n", i+1)
		fmt.Fprintln(w, "Process Flow:")
		fmt.Fprintln(w, Flow(path))
		fmt.Fprintln(w)

		d := r.Details[i]
		fmt.Fprintln(w, "Selected Steel Specs:")
		fmt.Fprintf(w, "  Steel Type:        %s\n", d.Steel)
		fmt.Fprintf(w, "  Final Hardness:    %s HRC\n", processgraph.FormatNumber(d.Hardness))
		fmt.Fprintf(w, "  Temp Process:      %s C\n", processgraph.FormatNumber(d.Temperature))
		fmt.Fprintf(w, "  Time Process:      %s s\n", processgraph.FormatNumber(d.Time))
		if len(d.Composition) > 0 {
			fmt.Fprintln(w, "  Composition (%):")
			elems := make([]string, 0, len(d.Composition))
			for el := range d.Composition {
				elems = append(elems, el)
			}
			sort.Strings(elems)
			for _, el := range elems {
				fmt.Fprintf(w, "    %-4s: %s\n", el, processgraph.FormatNumber(d.Composition[el]))
			}
		}
		fmt.Fprintln(w)
	}
}

// Title is a one-line caption for a successful result.
func Title(r *optimizer.Result) string {
	return fmt.Sprintf("%s | %s | cost %.2f %s", r.Query.Name, r.Query.Mode, r.Cost, r.Query.Mode.Unit())
}

// Flow renders a path of node labels as a process flow, dropping the row
// tags from Time and Temp labels.
func Flow(labels []string) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		if head, _, ok := strings.Cut(l, "|"); ok {
			l = strings.TrimSpace(head)
		}
		switch l {
		case processgraph.SourceLabel:
			l = "Start"
		case processgraph.SinkLabel:
			l = "End"
		}
		parts[i] = l
	}
	return strings.Join(parts, " -> ")
}

func filterLines(f constraints.Filters) []string {
	var out []string
	if f.SteelType != nil {
		out = append(out, "steel_type: "+*f.SteelType)
	}
	for _, el := range f.Elements() {
		c := f.Composition[el]
		out = append(out, fmt.Sprintf("%s: %s %s", el, c.Op, processgraph.FormatNumber(c.Val)))
	}
	ranges := []struct {
		name string
		r    *constraints.Range
	}{{"time_range", f.Time}, {"temperature_range", f.Temperature}, {"hardness_range", f.Hardness}}
	for _, r := range ranges {
		if r.r != nil {
			out = append(out, fmt.Sprintf("%s: %s - %s", r.name,
				processgraph.FormatNumber(r.r.Min), processgraph.FormatNumber(r.r.Max)))
		}
	}
	return out
}
