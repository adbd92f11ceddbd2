// Package machine parses the line-oriented machine output of svelte-check
// (`--output machine`). Every line is classified on its own; the parser has
// no state and never returns an error.
package machine

// Severity is the kind of a reported issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	}
	return "unknown"
}

// Parsed is the result of classifying one line: *Completion, *Issue or
// *Unrecognized.
type Parsed interface {
	parsed()
}

// Completion is the summary record emitted once at the end of a run.
type Completion struct {
	FileCount         int
	ErrorCount        int
	WarningCount      int
	FilesWithProblems int  // captured when present, not used for decisions
	HasFilesProblems  bool // FILES_WITH_PROBLEMS field was present
}

// Issue is one diagnostic at a file location.
type Issue struct {
	SeverityToken string // severity word as it appeared in the line
	Severity      Severity
	File          string
	Line          int // 1-based
	Column        int // 1-based
	Message       string
	Matcher       string // name of the matcher that accepted the line
}

// Unrecognized is any line that is not a structured record. Malformed is set
// when the line looked like one (timestamp plus a marker token) but no
// pattern accepted it.
type Unrecognized struct {
	Malformed bool
	Reason    string
}

func (*Completion) parsed()   {}
func (*Issue) parsed()        {}
func (*Unrecognized) parsed() {}

// MarshalText encodes the severity as its lowercase name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
