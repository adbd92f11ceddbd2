// Package sink persists the raw output of a run for later inspection.
package sink

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// LastName is the file that always holds the most recent persisted run.
const LastName = "last.log"

// File writes raw output to <Dir>/raw/<runID>.log and mirrors it to
// <Dir>/raw/last.log.
type File struct {
	Dir string
}

// NewFile returns a sink rooted at dir.
func NewFile(dir string) *File {
	return &File{Dir: dir}
}

// Persist writes lines and returns the path of the run's log file.
func (f *File) Persist(runID string, lines []string) (string, error) {
	rawDir := filepath.Join(f.Dir, "raw")
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return "", fmt.Errorf("creating raw output directory: %w", err)
	}

	path := filepath.Join(rawDir, runID+".log")
	if err := writeLines(path, lines); err != nil {
		return "", err
	}
	if err := writeLines(filepath.Join(rawDir, LastName), lines); err != nil {
		return path, err
	}
	return path, nil
}

func writeLines(path string, lines []string) error {
	out, err := os.Create(path) // #nosec G304 - path is built from configured directory
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	w := bufio.NewWriter(out)
	for _, l := range lines {
		_, _ = w.WriteString(l)
		_ = w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		_ = out.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
