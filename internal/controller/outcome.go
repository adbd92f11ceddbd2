package controller

import "github.com/dkoosis/svcheck/pkg/report"

// Outcome classifies a finished run.
type Outcome int

const (
	// OutcomeClean: the checker exited 0.
	OutcomeClean Outcome = iota
	// OutcomeIssues: exit 1 with at least one parsed diagnostic.
	OutcomeIssues
	// OutcomeAmbiguous: exit 1 but nothing parsed, likely a format mismatch.
	OutcomeAmbiguous
	// OutcomeToolFailure: the checker itself failed (exit > 1).
	OutcomeToolFailure
	// OutcomeLaunchFailure: the process never started.
	OutcomeLaunchFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClean:
		return "clean"
	case OutcomeIssues:
		return "issues"
	case OutcomeAmbiguous:
		return "ambiguous"
	case OutcomeToolFailure:
		return "tool-failure"
	case OutcomeLaunchFailure:
		return "launch-failure"
	}
	return "unknown"
}

// ExitCode is the status svcheck itself exits with for this outcome.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeClean:
		return 0
	case OutcomeIssues, OutcomeAmbiguous:
		return 1
	default:
		return 2
	}
}

// RetainsRawOutput reports whether the outcome persists raw output.
func (o Outcome) RetainsRawOutput() bool {
	return o == OutcomeAmbiguous || o == OutcomeToolFailure
}

// Decide maps the checker's exit code and parsed report to an outcome.
//
//	0              -> clean
//	1, diagnostics -> issues
//	1, none        -> ambiguous
//	anything else  -> tool failure
func Decide(exitCode int, rep report.Report) Outcome {
	switch {
	case exitCode == 0:
		return OutcomeClean
	case exitCode == 1 && len(rep.Diagnostics) > 0:
		return OutcomeIssues
	case exitCode == 1:
		return OutcomeAmbiguous
	default:
		return OutcomeToolFailure
	}
}
