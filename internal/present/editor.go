package present

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"mvdan.cc/sh/v3/shell"

	"github.com/dkoosis/svcheck/pkg/report"
)

// DefaultEditor is used when neither the caller nor $EDITOR names one.
const DefaultEditor = "vim"

// Editor opens diagnostics at their location in an external editor.
type Editor struct {
	command string // e.g. "vim", "code -r"
	dir     string // project root that diagnostic paths are relative to
}

// NewEditor creates an Editor. If command is empty it falls back to $EDITOR
// and then DefaultEditor.
func NewEditor(command, dir string) *Editor {
	if command == "" {
		command = os.Getenv("EDITOR")
		if command == "" {
			command = DefaultEditor
		}
	}
	return &Editor{command: command, dir: dir}
}

// Command builds the process that opens d. GUI editors that understand
// file:line:col get it; everything else gets the vi-style +line argument.
func (e *Editor) Command(d report.Diagnostic) *exec.Cmd {
	words, err := shell.Fields(e.command, os.Getenv)
	if err != nil || len(words) == 0 {
		words = []string{DefaultEditor}
	}
	file := d.File
	if !filepath.IsAbs(file) && e.dir != "" {
		file = filepath.Join(e.dir, file)
	}

	args := words[1:]
	switch filepath.Base(words[0]) {
	case "code", "codium", "cursor":
		args = append(args, "--goto", file+":"+strconv.Itoa(d.Line)+":"+strconv.Itoa(d.Column))
	case "subl", "zed":
		args = append(args, file+":"+strconv.Itoa(d.Line)+":"+strconv.Itoa(d.Column))
	default:
		args = append(args, "+"+strconv.Itoa(max(d.Line, 1)), file)
	}
	cmd := exec.Command(words[0], args...) // #nosec G204 - editor comes from the user's environment
	cmd.Dir = e.dir
	return cmd
}
