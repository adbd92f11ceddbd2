package machine

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	tokenCompleted = "COMPLETED"
	tokenError     = "ERROR"
	tokenWarning   = "WARNING"
)

var (
	completionRe = regexp.MustCompile(
		`^(\d+)\s+COMPLETED\s+(\d+)\s+FILES\s+(\d+)\s+ERRORS\s+(\d+)\s+WARNINGS(?:\s+(\d+)\s+FILES_WITH_PROBLEMS)?\s*$`,
	)
	strictRe  = regexp.MustCompile(`^\d+\s+(\S+)\s+"([^"]*)"\s+(\d+):(\d+)\s+"(.*)"\s*$`)
	relaxedRe = regexp.MustCompile(`^\d+\s+(\S+)\s+"([^"]*)"\s+(\d+):(\d+)\s+(.*)$`)
	lineColRe = regexp.MustCompile(`^(\d+):(\d+)$`)
)

// issueMatcher tries to read an issue from a line. ok is false when the
// line does not have the matcher's shape.
type issueMatcher struct {
	name  string
	match func(line string) (f fields, ok bool)
}

// fields holds the raw captures before numeric and severity validation.
type fields struct {
	severity string
	file     string
	line     string
	column   string
	message  string
}

// matchers are tried in order; the first that accepts the line wins.
var matchers = []issueMatcher{
	{name: "strict", match: matchStrict},
	{name: "relaxed", match: matchRelaxed},
	{name: "tokens", match: matchTokens},
}

// Matchers returns the issue matcher names in the order they are tried.
func Matchers() []string {
	names := make([]string, len(matchers))
	for i, m := range matchers {
		names[i] = m.name
	}
	return names
}

// Parse classifies a single line of machine output.
func Parse(line string) Parsed {
	line = strings.TrimRight(line, "\r\n")
	if !hasTimestamp(line) {
		return &Unrecognized{}
	}

	// The record kind is the word after the timestamp; an issue whose path or
	// message mentions COMPLETED is still an issue.
	if recordWord(line) == tokenCompleted {
		return parseCompletion(line)
	}

	if strings.Contains(line, tokenError) || strings.Contains(line, tokenWarning) {
		return parseIssue(line)
	}

	if strings.Contains(line, tokenCompleted) {
		return parseCompletion(line)
	}

	return &Unrecognized{}
}

// recordWord returns the first whitespace-delimited word after the timestamp.
func recordWord(line string) string {
	rest := strings.TrimLeft(line, "0123456789")
	rest = strings.TrimLeft(rest, " \t")
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		return rest[:i]
	}
	return rest
}

// hasTimestamp reports whether line begins with a run of ASCII digits.
func hasTimestamp(line string) bool {
	return len(line) > 0 && line[0] >= '0' && line[0] <= '9'
}

func parseCompletion(line string) Parsed {
	m := completionRe.FindStringSubmatch(line)
	if m == nil {
		return &Unrecognized{Malformed: true, Reason: "completion line missing counts"}
	}

	files, okFiles := count(m[2])
	errs, okErrs := count(m[3])
	warns, okWarns := count(m[4])
	if !okFiles || !okErrs || !okWarns {
		return &Unrecognized{Malformed: true, Reason: "completion count out of range"}
	}

	c := &Completion{FileCount: files, ErrorCount: errs, WarningCount: warns}
	if m[5] != "" {
		if n, ok := count(m[5]); ok {
			c.FilesWithProblems = n
			c.HasFilesProblems = true
		}
	}
	return c
}

func parseIssue(line string) Parsed {
	for _, m := range matchers {
		f, ok := m.match(line)
		if !ok {
			continue
		}
		issue, why := toIssue(f)
		if issue == nil {
			// The first matcher whose shape fits decides. Later matchers are
			// looser and would read the same fields from shifted positions.
			return &Unrecognized{Malformed: true, Reason: m.name + ": " + why}
		}
		issue.Matcher = m.name
		return issue
	}
	return &Unrecognized{Malformed: true, Reason: "no issue pattern matched"}
}

func toIssue(f fields) (*Issue, string) {
	sev, ok := severityOf(f.severity)
	if !ok {
		return nil, "unknown severity " + strconv.Quote(f.severity)
	}
	ln, ok := position(f.line)
	if !ok {
		return nil, "invalid line " + strconv.Quote(f.line)
	}
	col, ok := position(f.column)
	if !ok {
		return nil, "invalid column " + strconv.Quote(f.column)
	}
	return &Issue{
		SeverityToken: f.severity,
		Severity:      sev,
		File:          f.file,
		Line:          ln,
		Column:        col,
		Message:       f.message,
	}, ""
}

// severityOf maps a severity word by its first character, case preserved.
func severityOf(word string) (Severity, bool) {
	if word == "" {
		return 0, false
	}
	switch word[0] {
	case 'E':
		return SeverityError, true
	case 'W':
		return SeverityWarning, true
	}
	return 0, false
}

func matchStrict(line string) (fields, bool) {
	m := strictRe.FindStringSubmatch(line)
	if m == nil {
		return fields{}, false
	}
	return fields{severity: m[1], file: m[2], line: m[3], column: m[4], message: m[5]}, true
}

func matchRelaxed(line string) (fields, bool) {
	m := relaxedRe.FindStringSubmatch(line)
	if m == nil {
		return fields{}, false
	}
	return fields{severity: m[1], file: m[2], line: m[3], column: m[4], message: stripQuotes(m[5])}, true
}

// matchTokens is the whitespace-split fallback. A path containing spaces or
// quoted segments shifts the fields; that imprecision is accepted.
func matchTokens(line string) (fields, bool) {
	tokens := strings.Fields(line)
	if len(tokens) < 4 {
		return fields{}, false
	}
	lc := lineColRe.FindStringSubmatch(tokens[3])
	if lc == nil {
		return fields{}, false
	}
	return fields{
		severity: tokens[1],
		file:     stripQuotes(tokens[2]),
		line:     lc[1],
		column:   lc[2],
		message:  stripQuotes(strings.Join(tokens[4:], " ")),
	}, true
}

// stripQuotes removes at most one leading and one trailing double quote.
func stripQuotes(s string) string {
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

func count(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// position parses a 1-based line or column number.
func position(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
