package present

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/dkoosis/svcheck/pkg/machine"
	"github.com/dkoosis/svcheck/pkg/report"
)

// Terminal prints one line per diagnostic, leading with file:line:col so
// terminals and editors can jump to it.
type Terminal struct {
	w     io.Writer
	theme Theme
	width func() int
}

// NewTerminal writes to w. Lines are fitted to the width of w when it is a
// terminal and left whole otherwise.
func NewTerminal(w io.Writer, theme Theme) *Terminal {
	return &Terminal{w: w, theme: theme, width: func() int { return terminalWidth(w) }}
}

// terminalWidth returns 0 when w is not a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

// Present writes the diagnostics. An empty list writes nothing; the summary
// line is the notifier's job.
func (t *Terminal) Present(title string, diags []report.Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(t.theme.Bold.Render(title))
	sb.WriteString("\n")
	width := t.width()
	for _, d := range diags {
		sb.WriteString(t.line(d, width))
		sb.WriteString("\n")
	}
	_, err := io.WriteString(t.w, sb.String())
	return err
}

func (t *Terminal) line(d report.Diagnostic, width int) string {
	icon, style := t.theme.Icons.Warn, t.theme.Warning
	if d.Severity == machine.SeverityError {
		icon, style = t.theme.Icons.Fail, t.theme.Error
	}
	loc := d.Location()
	label := fmt.Sprintf("%s %-7s", icon, severityLabel(d.Severity))
	msg := firstLine(d.Message)

	if width > 0 {
		used := runewidth.StringWidth(loc) + runewidth.StringWidth(label) + 4
		if avail := width - used; avail > 3 {
			msg = runewidth.Truncate(msg, avail, "…")
		}
	}
	return fmt.Sprintf("%s  %s  %s",
		t.theme.Location.Render(loc),
		style.Render(label),
		msg)
}

// firstLine trims multi-line messages to their first line.
func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return strings.TrimSpace(s[:i]) + " …"
	}
	return s
}
