package present

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dkoosis/svcheck/pkg/report"
)

// QuickfixFormat is the vim errorformat matching the quickfix file.
const QuickfixFormat = `%f:%l:%c: %t%*[a-z]: %m`

// Quickfix rewrites a file in vim's quickfix format on every Present. An
// empty list truncates the file, clearing the previous set.
type Quickfix struct {
	Path string
}

// NewQuickfix writes to path.
func NewQuickfix(path string) *Quickfix {
	return &Quickfix{Path: path}
}

func (q *Quickfix) Present(_ string, diags []report.Diagnostic) error {
	if dir := filepath.Dir(q.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating quickfix directory: %w", err)
		}
	}
	f, err := os.Create(q.Path) // #nosec G304 - path comes from configuration
	if err != nil {
		return fmt.Errorf("creating quickfix file: %w", err)
	}
	w := bufio.NewWriter(f)
	for _, d := range diags {
		fmt.Fprintf(w, "%s:%d:%d: %s: %s\n", d.File, d.Line, d.Column, d.Severity, oneLine(d.Message))
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing quickfix file: %w", err)
	}
	return f.Close()
}

// oneLine joins a multi-line message so each diagnostic stays on one line.
func oneLine(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' {
			r = ' '
		}
		out = append(out, r)
	}
	return string(out)
}
