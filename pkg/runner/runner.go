// Package runner launches the checker process and streams its output line by
// line.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/sourcegraph/conc"
	"mvdan.cc/sh/v3/shell"
)

// MachineOutputFlag asks svelte-check for its machine-readable output.
const MachineOutputFlag = "--output machine"

// DefaultMaxLineLength bounds a single scanned line (1MB).
const DefaultMaxLineLength = 1 * 1024 * 1024

// ErrEmptyCommand is returned when the configured command has no words.
var ErrEmptyCommand = errors.New("empty command")

// LineFunc receives one output line. isErr is true for stderr lines.
type LineFunc func(line string, isErr bool)

// ExitFunc receives the process exit code once all lines were delivered.
type ExitFunc func(code int)

// LaunchError reports that the process could not be started at all.
type LaunchError struct {
	Command string
	Dir     string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %q in %s: %v", e.Command, e.Dir, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// Runner starts checker processes. A Runner holds no per-run state and may
// start several processes.
type Runner struct {
	maxLineLength int
	machineFlag   string
	env           []string
	logger        *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithMaxLineLength sets the longest line the scanner accepts.
func WithMaxLineLength(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxLineLength = n
		}
	}
}

// WithMachineFlag replaces the flag appended to every command.
func WithMachineFlag(flag string) Option {
	return func(r *Runner) { r.machineFlag = flag }
}

// WithEnv adds KEY=VALUE entries to the process environment. They are also
// visible to $VAR expansion in the command string.
func WithEnv(env ...string) Option {
	return func(r *Runner) { r.env = append(r.env, env...) }
}

// WithLogger sets the debug logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns a Runner with the given options applied.
func New(opts ...Option) *Runner {
	r := &Runner{
		maxLineLength: DefaultMaxLineLength,
		machineFlag:   MachineOutputFlag,
		logger:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BuildArgs splits command with POSIX shell rules and appends the machine
// output flag.
func (r *Runner) BuildArgs(command string) ([]string, error) {
	words, err := shell.Fields(command, r.lookupEnv)
	if err != nil {
		return nil, fmt.Errorf("parsing command %q: %w", command, err)
	}
	if len(words) == 0 {
		return nil, ErrEmptyCommand
	}
	flag, err := shell.Fields(r.machineFlag, nil)
	if err != nil {
		return nil, fmt.Errorf("parsing machine flag %q: %w", r.machineFlag, err)
	}
	return append(words, flag...), nil
}

func (r *Runner) lookupEnv(name string) string {
	prefix := name + "="
	for i := len(r.env) - 1; i >= 0; i-- {
		if v, ok := strings.CutPrefix(r.env[i], prefix); ok {
			return v
		}
	}
	return os.Getenv(name)
}

type streamLine struct {
	text  string
	isErr bool
}

// Start launches command in dir and returns once the process is running.
// onLine is called for every stdout and stderr line, never concurrently.
// onExit is called exactly once, after the last onLine. If the process
// cannot be started, Start returns a *LaunchError and neither callback runs.
// Cancelling ctx kills the process group; exit is still delivered.
func (r *Runner) Start(ctx context.Context, command, dir string, onLine LineFunc, onExit ExitFunc) error {
	args, err := r.BuildArgs(command)
	if err != nil {
		return &LaunchError{Command: command, Dir: dir, Err: err}
	}

	cmd := exec.Command(args[0], args[1:]...) // #nosec G204 - command comes from user configuration
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), r.env...)
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &LaunchError{Command: command, Dir: dir, Err: fmt.Errorf("creating stdout pipe: %w", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		_ = stdout.Close()
		return &LaunchError{Command: command, Dir: dir, Err: fmt.Errorf("creating stderr pipe: %w", err)}
	}

	r.logger.Debug("launching checker", "args", args, "dir", dir)
	if err := cmd.Start(); err != nil {
		_ = stdout.Close()
		_ = stderr.Close()
		return &LaunchError{Command: command, Dir: dir, Err: err}
	}

	lines := make(chan streamLine, 64)
	var readers conc.WaitGroup
	readers.Go(func() { r.scan(stdout, false, lines) })
	readers.Go(func() { r.scan(stderr, true, lines) })
	go func() {
		readers.Wait()
		close(lines)
	}()

	go func() {
		stop := context.AfterFunc(ctx, func() {
			r.logger.Debug("context cancelled, killing checker", "pid", cmd.Process.Pid)
			_ = killProcessGroup(cmd)
		})
		defer stop()

		for l := range lines {
			onLine(l.text, l.isErr)
		}
		// Wait only after both pipes are drained.
		waitErr := cmd.Wait()
		code := exitCode(waitErr)
		r.logger.Debug("checker exited", "code", code, "err", waitErr)
		onExit(code)
	}()

	return nil
}

func (r *Runner) scan(rd io.Reader, isErr bool, out chan<- streamLine) {
	err := ReadLines(rd, r.maxLineLength,
		func(line string) { out <- streamLine{text: line, isErr: isErr} },
		func(n int) {
			r.logger.Warn("skipping overlong checker output line", "stderr", isErr, "bytes", n, "limit", r.maxLineLength)
		},
	)
	if err != nil && !isIgnorableReadError(err) {
		r.logger.Warn("reading checker output", "stderr", isErr, "err", err)
	}
	// Keep the pipe drained so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, rd)
}

// ReadLines calls onLine for each line of rd without its line ending. A line
// longer than maxLen bytes is dropped whole, reported to skipped with its
// length, and reading goes on with the next line. It returns nil at EOF.
func ReadLines(rd io.Reader, maxLen int, onLine func(string), skipped func(n int)) error {
	br := bufio.NewReaderSize(rd, min(maxLen, bufio.MaxScanTokenSize))
	var buf []byte
	n, over := 0, false
	for {
		chunk, more, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		n += len(chunk)
		switch {
		case over:
		case n > maxLen:
			over = true
			buf = buf[:0]
		default:
			buf = append(buf, chunk...)
		}
		if more {
			continue
		}
		if over {
			if skipped != nil {
				skipped(n)
			}
		} else {
			onLine(string(buf))
		}
		buf, n, over = buf[:0], 0, false
	}
}

func isIgnorableReadError(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, os.ErrClosed) ||
		strings.Contains(err.Error(), "file already closed") ||
		strings.Contains(err.Error(), "broken pipe")
}

// exitCode maps the result of cmd.Wait to an exit status. A wait failure that
// carries no status yields -1.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code, ok := exitCodeFromError(exitErr); ok {
			return code
		}
	}
	return -1
}

// IsCommandNotFound reports whether err means the executable does not exist.
func IsCommandNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	errStr := err.Error()
	if strings.Contains(errStr, "executable file not found") {
		return true
	}
	return runtime.GOOS != "windows" && strings.Contains(errStr, "no such file or directory")
}
