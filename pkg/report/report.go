// Package report accumulates parsed machine-output lines for one run and
// produces the final diagnostics report.
package report

import (
	"fmt"
	"strings"

	"github.com/dkoosis/svcheck/pkg/machine"
)

// Diagnostic is one reported issue at a file location.
type Diagnostic struct {
	Severity machine.Severity `json:"severity"`
	File     string           `json:"file"`
	Line     int              `json:"line"`
	Column   int              `json:"column"`
	Message  string           `json:"message"`
}

// Location formats the diagnostic position as file:line:col.
func (d Diagnostic) Location() string {
	return fmt.Sprintf("%s:%d:%d", d.File, d.Line, d.Column)
}

// Summary holds run totals. HasExplicitTotals is true when the counts came
// from the tool's completion line rather than a tally of diagnostics.
type Summary struct {
	FileCount         int  `json:"file_count"`
	ErrorCount        int  `json:"error_count"`
	WarningCount      int  `json:"warning_count"`
	FilesWithProblems int  `json:"files_with_problems,omitempty"`
	HasExplicitTotals bool `json:"has_explicit_totals"`
}

// Report is the finalized result of one run.
type Report struct {
	Diagnostics        []Diagnostic `json:"diagnostics"`
	Summary            Summary      `json:"summary"`
	RawLineCount       int          `json:"raw_line_count"`
	MalformedLineCount int          `json:"malformed_line_count"`
}

// Title returns the presentation title for the report, prefixed by tool.
func (r Report) Title(tool string) string {
	s := r.Summary
	var sb strings.Builder
	if tool != "" {
		sb.WriteString(tool)
		sb.WriteString(": ")
	}
	sb.WriteString(plural(s.ErrorCount, "error"))
	sb.WriteString(", ")
	sb.WriteString(plural(s.WarningCount, "warning"))
	if s.FileCount > 0 {
		sb.WriteString(" in ")
		sb.WriteString(plural(s.FileCount, "file"))
	}
	return sb.String()
}

// Counts returns the error and warning totals from the summary.
func (r Report) Counts() (errors, warnings int) {
	return r.Summary.ErrorCount, r.Summary.WarningCount
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Tally counts errors and warnings among diags.
func Tally(diags []Diagnostic) (errors, warnings int) {
	for _, d := range diags {
		switch d.Severity {
		case machine.SeverityError:
			errors++
		case machine.SeverityWarning:
			warnings++
		}
	}
	return errors, warnings
}

// Aggregator collects parsed lines for a single run. It is not safe for
// concurrent use and is not reused across runs.
type Aggregator struct {
	diagnostics []Diagnostic
	explicit    *Summary
	rawLines    int
	malformed   int
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Ingest adds one parsed line to the run.
func (a *Aggregator) Ingest(p machine.Parsed) {
	switch v := p.(type) {
	case *machine.Completion:
		// At most one completion line is expected; the last one wins.
		a.explicit = &Summary{
			FileCount:         v.FileCount,
			ErrorCount:        v.ErrorCount,
			WarningCount:      v.WarningCount,
			FilesWithProblems: v.FilesWithProblems,
			HasExplicitTotals: true,
		}
	case *machine.Issue:
		a.diagnostics = append(a.diagnostics, Diagnostic{
			Severity: v.Severity,
			File:     v.File,
			Line:     v.Line,
			Column:   v.Column,
			Message:  v.Message,
		})
	case *machine.Unrecognized:
		a.rawLines++
		if v.Malformed {
			a.malformed++
		}
	}
}

// Finalize returns the report for everything ingested so far. It does not
// reset the aggregator; repeated calls return equal reports.
func (a *Aggregator) Finalize() Report {
	diags := make([]Diagnostic, len(a.diagnostics))
	copy(diags, a.diagnostics)

	var summary Summary
	if a.explicit != nil {
		summary = *a.explicit
	} else {
		summary = tallySummary(diags)
	}

	return Report{
		Diagnostics:        diags,
		Summary:            summary,
		RawLineCount:       a.rawLines,
		MalformedLineCount: a.malformed,
	}
}

func tallySummary(diags []Diagnostic) Summary {
	errs, warns := Tally(diags)
	files := make(map[string]struct{}, len(diags))
	for _, d := range diags {
		files[d.File] = struct{}{}
	}
	return Summary{
		FileCount:    len(files),
		ErrorCount:   errs,
		WarningCount: warns,
	}
}
