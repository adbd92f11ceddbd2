package machine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ReturnsUnrecognized_When_NoTimestampPrefix(t *testing.T) {
	t.Parallel()

	lines := []string{
		"",
		"Getting Svelte diagnostics...",
		"====================================",
		`ERROR "src/App.svelte" 10:5 "Cannot find name 'foo'."`,
		" 1700000000000 COMPLETED 1 FILES 0 ERRORS 0 WARNINGS",
		"svelte-check found 3 errors and 2 warnings",
		"> my-app@0.0.1 check",
	}

	for _, line := range lines {
		got := Parse(line)
		u, ok := got.(*Unrecognized)
		require.True(t, ok, "line %q: expected *Unrecognized, got %T", line, got)
		assert.False(t, u.Malformed, "line %q should be plain noise", line)
	}
}

func TestParse_ReadsCompletion_When_AllCountsPresent(t *testing.T) {
	t.Parallel()

	got := Parse("1700000000000 COMPLETED 12 FILES 3 ERRORS 2 WARNINGS 1 FILES_WITH_PROBLEMS")

	c, ok := got.(*Completion)
	require.True(t, ok, "expected *Completion, got %T", got)
	assert.Equal(t, 12, c.FileCount)
	assert.Equal(t, 3, c.ErrorCount)
	assert.Equal(t, 2, c.WarningCount)
	assert.Equal(t, 1, c.FilesWithProblems)
	assert.True(t, c.HasFilesProblems)
}

func TestParse_ReadsCompletion_When_FilesWithProblemsAbsent(t *testing.T) {
	t.Parallel()

	got := Parse("1700000000000 COMPLETED 4 FILES 0 ERRORS 0 WARNINGS")

	c, ok := got.(*Completion)
	require.True(t, ok, "expected *Completion, got %T", got)
	assert.Equal(t, 4, c.FileCount)
	assert.False(t, c.HasFilesProblems)
}

func TestParse_FlagsMalformed_When_CompletionIsPartial(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{"missing warnings", "1700000000000 COMPLETED 12 FILES 3 ERRORS"},
		{"missing everything", "1700000000000 COMPLETED"},
		{"non-numeric count", "1700000000000 COMPLETED x FILES 3 ERRORS 2 WARNINGS"},
		{"negative count", "1700000000000 COMPLETED -1 FILES 3 ERRORS 2 WARNINGS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.line)
			u, ok := got.(*Unrecognized)
			require.True(t, ok, "expected *Unrecognized, got %T", got)
			assert.True(t, u.Malformed)
			assert.NotEmpty(t, u.Reason)
		})
	}
}

func TestParse_ReadsIssue_When_StrictForm(t *testing.T) {
	t.Parallel()

	got := Parse(`1700000000001 ERROR "src/App.svelte" 10:5 "Cannot find name 'foo'."`)

	issue, ok := got.(*Issue)
	require.True(t, ok, "expected *Issue, got %T", got)
	assert.Equal(t, SeverityError, issue.Severity)
	assert.Equal(t, "ERROR", issue.SeverityToken)
	assert.Equal(t, "src/App.svelte", issue.File)
	assert.Equal(t, 10, issue.Line)
	assert.Equal(t, 5, issue.Column)
	assert.Equal(t, "Cannot find name 'foo'.", issue.Message)
	assert.Equal(t, "strict", issue.Matcher)
}

func TestParse_RelaxedFormMatchesStrict_When_MessageUnquoted(t *testing.T) {
	t.Parallel()

	strict, ok := Parse(`1700000000001 ERROR "src/App.svelte" 10:5 "Cannot find name 'foo'."`).(*Issue)
	require.True(t, ok)
	relaxed, ok := Parse(`1700000000001 ERROR "src/App.svelte" 10:5 Cannot find name 'foo'.`).(*Issue)
	require.True(t, ok)

	assert.Equal(t, "relaxed", relaxed.Matcher)
	relaxed.Matcher = strict.Matcher
	assert.Equal(t, strict, relaxed)
}

func TestParse_StripsOneQuote_When_RelaxedMessageHalfQuoted(t *testing.T) {
	t.Parallel()

	got := Parse(`1700000000001 WARNING "src/lib/Nav.svelte" 3:1 "A11y: <a> element should have an href attribute`)

	issue, ok := got.(*Issue)
	require.True(t, ok, "expected *Issue, got %T", got)
	assert.Equal(t, SeverityWarning, issue.Severity)
	assert.Equal(t, "A11y: <a> element should have an href attribute", issue.Message)
	assert.Equal(t, "relaxed", issue.Matcher)
}

func TestParse_FallsBackToTokens_When_PathUnquoted(t *testing.T) {
	t.Parallel()

	got := Parse(`1700000000002 WARNING src/routes/+page.svelte 7:12 "Unused CSS selector "h1""`)

	issue, ok := got.(*Issue)
	require.True(t, ok, "expected *Issue, got %T", got)
	assert.Equal(t, "tokens", issue.Matcher)
	assert.Equal(t, SeverityWarning, issue.Severity)
	assert.Equal(t, "src/routes/+page.svelte", issue.File)
	assert.Equal(t, 7, issue.Line)
	assert.Equal(t, 12, issue.Column)
	assert.Equal(t, `Unused CSS selector "h1"`, issue.Message)
}

func TestParse_TokenFallbackMisreadsPath_When_PathHasSpaces(t *testing.T) {
	t.Parallel()

	// Known gap: the whitespace split cannot see the path boundary, so the
	// line:col token is not at index 3 and nothing matches.
	got := Parse(`1700000000002 ERROR src/my file.svelte 1:1 boom`)

	u, ok := got.(*Unrecognized)
	require.True(t, ok, "expected *Unrecognized, got %T", got)
	assert.True(t, u.Malformed)
}

func TestParse_MapsSeverityByFirstLetter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		word string
		want Severity
	}{
		{"ERROR", SeverityError},
		{"WARNING", SeverityWarning},
		{"Err", SeverityError},
		{"WARN_ERROR", SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			t.Parallel()
			// The line must still carry a marker token to be considered.
			line := `1 ` + tt.word + ` "a.svelte" 1:1 "ERROR WARNING"`
			issue, ok := Parse(line).(*Issue)
			require.True(t, ok)
			assert.Equal(t, tt.want, issue.Severity)
			assert.Equal(t, tt.word, issue.SeverityToken)
		})
	}
}

func TestParse_FlagsMalformed_When_IssueLooksStructuredButInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{"lowercase severity", `1700000000001 error "a.svelte" 1:1 "ERROR"`},
		{"unknown severity", `1700000000001 INFO "a.svelte" 1:1 "WARNING: x"`},
		{"zero line", `1700000000001 ERROR "a.svelte" 0:1 "x"`},
		{"zero column", `1700000000001 ERROR "a.svelte" 1:0 "x"`},
		{"no position", `1700000000001 ERROR "a.svelte" "x"`},
		{"too few tokens", `1700000000001 ERROR a.svelte`},
		{"line overflow", `1700000000001 ERROR "a.svelte" 99999999999999999999:1 "x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Parse(tt.line)
			u, ok := got.(*Unrecognized)
			require.True(t, ok, "expected *Unrecognized, got %T", got)
			assert.True(t, u.Malformed)
		})
	}
}

func TestParse_StopsAtFirstFittingMatcher_When_ValuesInvalid(t *testing.T) {
	t.Parallel()

	// The token fallback alone would read 2:3 out of the quoted path.
	got := Parse(`1700000000001 ERROR "x 2:3 y" 0:1 "m"`)

	u, ok := got.(*Unrecognized)
	require.True(t, ok, "expected *Unrecognized, got %T", got)
	assert.True(t, u.Malformed)
	assert.True(t, strings.HasPrefix(u.Reason, "strict: "), "reason %q", u.Reason)
}

func TestParse_IgnoresTimestampedLines_When_NoMarkerToken(t *testing.T) {
	t.Parallel()

	for _, line := range []string{
		`1700000000000 START "/home/me/app"`,
		`1700000000000 FAILURE "Connection closed"`,
		`1700000000000`,
	} {
		u, ok := Parse(line).(*Unrecognized)
		require.True(t, ok, "line %q", line)
		assert.False(t, u.Malformed, "line %q", line)
	}
}

func TestParse_ReadsIssue_When_PathMentionsCompleted(t *testing.T) {
	t.Parallel()

	issue, ok := Parse(`1700000000001 ERROR "src/COMPLETED.svelte" 2:3 "x"`).(*Issue)
	require.True(t, ok)
	assert.Equal(t, "src/COMPLETED.svelte", issue.File)
}

func TestParse_TrimsCarriageReturn(t *testing.T) {
	t.Parallel()

	c, ok := Parse("1700000000000 COMPLETED 1 FILES 0 ERRORS 1 WARNINGS\r\n").(*Completion)
	require.True(t, ok)
	assert.Equal(t, 1, c.WarningCount)
}

func TestMatchers_ListsInTryOrder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"strict", "relaxed", "tokens"}, Matchers())
}

func FuzzParse(f *testing.F) {
	f.Add(`1700000000001 ERROR "src/App.svelte" 10:5 "Cannot find name 'foo'."`)
	f.Add("1700000000000 COMPLETED 12 FILES 3 ERRORS 2 WARNINGS 1 FILES_WITH_PROBLEMS")
	f.Add(`1 W x 1:1`)
	f.Fuzz(func(t *testing.T, line string) {
		switch v := Parse(line).(type) {
		case *Issue:
			if v.Line < 1 || v.Column < 1 {
				t.Fatalf("non-positive position in %q: %d:%d", line, v.Line, v.Column)
			}
		case *Completion, *Unrecognized:
		default:
			t.Fatalf("unexpected result %T", v)
		}
	})
}
