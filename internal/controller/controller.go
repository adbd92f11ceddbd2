// Package controller owns the lifecycle of a check run: it launches the
// checker, feeds its output through the parser and aggregator, decides the
// outcome from the exit code, and hands the results to the presentation
// collaborators.
//
// A Controller allows one run at a time. State moves Idle -> Running ->
// Finalizing -> Idle; Start is rejected in any state but Idle.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dkoosis/svcheck/internal/spinner"
	"github.com/dkoosis/svcheck/pkg/machine"
	"github.com/dkoosis/svcheck/pkg/report"
	"github.com/dkoosis/svcheck/pkg/runner"
)

// DefaultToolName prefixes presentation titles.
const DefaultToolName = "svelte-check"

var (
	// ErrRunInProgress is returned by Start when a run is already active.
	ErrRunInProgress = errors.New("a check is already running")
	// ErrClosed is returned once the controller has been closed.
	ErrClosed = errors.New("controller closed")
)

// State is the run lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateFinalizing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFinalizing:
		return "finalizing"
	}
	return "unknown"
}

// Launcher starts the checker process. *runner.Runner implements it.
type Launcher interface {
	Start(ctx context.Context, command, dir string, onLine runner.LineFunc, onExit runner.ExitFunc) error
}

// Presenter displays diagnostics. An empty list clears any previous set.
type Presenter interface {
	Present(title string, diags []report.Diagnostic) error
}

// Sink persists the raw lines of a run and returns where they went.
type Sink interface {
	Persist(runID string, lines []string) (string, error)
}

// Notifier shows one-line messages to the user.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Config holds the run settings the controller needs.
type Config struct {
	Command  string
	ToolName string // title prefix, defaults to DefaultToolName
	Debug    bool   // trace every line and persist raw output for every run
}

// Deps are the collaborators. Nil fields fall back to no-op implementations.
type Deps struct {
	Launcher   Launcher
	FindRoot   func() (string, bool)
	Presenter  Presenter
	Sink       Sink
	Indicator  spinner.Indicator
	Notifier   Notifier
	Logger     *slog.Logger
	OnComplete func(Result)
	NewRunID   func() string
	Now        func() time.Time
}

// Result is the read-only record of a finished run.
type Result struct {
	RunID         string
	Outcome       Outcome
	ExitCode      int // checker exit code, -1 when it never started
	Report        report.Report
	Dir           string
	RawOutputPath string
	Message       string
	Started       time.Time
	Duration      time.Duration
}

// Controller runs the checker one run at a time.
type Controller struct {
	cfg  Config
	deps Deps

	mu      sync.Mutex
	state   State
	gen     uint64
	closed  bool
	agg     *report.Aggregator
	raw     []string
	runID   string
	dir     string
	started time.Time
	done    chan Result
	last    *Result
}

// New returns an idle controller.
func New(cfg Config, deps Deps) *Controller {
	if cfg.ToolName == "" {
		cfg.ToolName = DefaultToolName
	}
	if deps.Launcher == nil {
		deps.Launcher = runner.New(runner.WithLogger(deps.Logger))
	}
	if deps.FindRoot == nil {
		deps.FindRoot = func() (string, bool) { return "", false }
	}
	if deps.Presenter == nil {
		deps.Presenter = nopPresenter{}
	}
	if deps.Sink == nil {
		deps.Sink = nopSink{}
	}
	if deps.Indicator == nil {
		deps.Indicator = spinner.Nop{}
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.NewRunID == nil {
		deps.NewRunID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Controller{cfg: cfg, deps: deps}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Last returns the result of the most recent finished run.
func (c *Controller) Last() (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Result{}, false
	}
	return *c.last, true
}

// Start begins a run and returns without waiting for it. It returns
// ErrRunInProgress when a run is active and ErrClosed after Close; every
// other failure, including a process that cannot start, is reported through
// the Notifier and the run's Result.
func (c *Controller) Start(ctx context.Context) error {
	_, err := c.start(ctx)
	return err
}

// Run starts a run and blocks until it finishes.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	done, err := c.start(ctx)
	if err != nil {
		return Result{}, err
	}
	res, ok := <-done
	if !ok {
		return Result{}, ErrClosed
	}
	return res, nil
}

func (c *Controller) start(ctx context.Context) (<-chan Result, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.state != StateIdle {
		c.mu.Unlock()
		c.deps.Logger.Debug("start rejected", "state", c.state.String())
		return nil, ErrRunInProgress
	}
	c.gen++
	gen := c.gen
	c.state = StateRunning
	c.agg = report.NewAggregator()
	c.raw = nil
	c.runID = c.deps.NewRunID()
	c.dir = c.workDir()
	c.started = c.deps.Now()
	c.done = make(chan Result, 1)
	done := c.done
	dir := c.dir
	c.deps.Indicator.Start()
	c.mu.Unlock()

	c.deps.Logger.Debug("run started", "command", c.cfg.Command, "dir", dir)
	err := c.deps.Launcher.Start(ctx, c.cfg.Command, dir,
		func(line string, isErr bool) { c.handleLine(gen, line, isErr) },
		func(code int) { c.handleExit(gen, code) },
	)
	if err != nil {
		c.launchFailed(gen, err)
	}
	return done, nil
}

// workDir must be called with mu held.
func (c *Controller) workDir() string {
	if root, ok := c.deps.FindRoot(); ok {
		return root
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// current reports whether a callback for gen still belongs to the active
// run. It must be called with mu held.
func (c *Controller) current(gen uint64) bool {
	return !c.closed && gen == c.gen && c.state == StateRunning
}

func (c *Controller) handleLine(gen uint64, line string, isErr bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(gen) {
		return
	}
	c.raw = append(c.raw, line)
	parsed := machine.Parse(line)
	c.agg.Ingest(parsed)
	c.trace(line, isErr, parsed)
}

func (c *Controller) trace(line string, isErr bool, parsed machine.Parsed) {
	stream := "stdout"
	if isErr {
		stream = "stderr"
	}
	switch v := parsed.(type) {
	case *machine.Unrecognized:
		if v.Malformed {
			c.deps.Logger.Debug("malformed line", "stream", stream, "reason", v.Reason, "line", line)
			return
		}
		if c.cfg.Debug {
			c.deps.Logger.Debug("unrecognized line", "stream", stream, "line", line)
		}
	case *machine.Issue:
		if c.cfg.Debug {
			c.deps.Logger.Debug("issue", "stream", stream, "matcher", v.Matcher,
				"severity", v.Severity.String(), "file", v.File, "line", v.Line, "column", v.Column)
		}
	case *machine.Completion:
		if c.cfg.Debug {
			c.deps.Logger.Debug("completion", "files", v.FileCount, "errors", v.ErrorCount, "warnings", v.WarningCount)
		}
	}
}

func (c *Controller) handleExit(gen uint64, code int) {
	c.mu.Lock()
	if !c.current(gen) {
		c.mu.Unlock()
		return
	}
	c.state = StateFinalizing
	c.deps.Indicator.Stop()
	rep := c.agg.Finalize()
	raw := c.raw
	c.raw = nil
	res := Result{
		RunID:    c.runID,
		Outcome:  Decide(code, rep),
		ExitCode: code,
		Report:   rep,
		Dir:      c.dir,
		Started:  c.started,
		Duration: c.deps.Now().Sub(c.started),
	}
	c.mu.Unlock()

	c.deps.Logger.Debug("run finished", "code", code, "outcome", res.Outcome.String(),
		"diagnostics", len(rep.Diagnostics), "raw_lines", rep.RawLineCount, "malformed", rep.MalformedLineCount)

	// Presentation may block (the interactive browser); the state stays
	// Finalizing meanwhile so Start keeps rejecting.
	c.reportOutcome(&res, raw)
	c.finish(gen, res)
}

func (c *Controller) launchFailed(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		return
	}
	c.deps.Indicator.Stop()
	res := Result{
		RunID:    c.runID,
		Outcome:  OutcomeLaunchFailure,
		ExitCode: -1,
		Dir:      c.dir,
		Started:  c.started,
		Message:  launchMessage(c.cfg.Command, err),
	}
	c.mu.Unlock()

	c.deps.Logger.Debug("launch failed", "err", err)
	c.deps.Notifier.Error(res.Message)
	c.finish(gen, res)
}

// finish records res and returns to Idle.
func (c *Controller) finish(gen uint64, res Result) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.last = &res
	c.state = StateIdle
	c.agg = nil
	done := c.done
	c.done = nil
	c.mu.Unlock()

	if done != nil {
		done <- res
	}
	if c.deps.OnComplete != nil {
		c.deps.OnComplete(res)
	}
}

func (c *Controller) reportOutcome(res *Result, raw []string) {
	rep := res.Report
	title := rep.Title(c.cfg.ToolName)

	var sinkErr error
	if res.Outcome.RetainsRawOutput() || c.cfg.Debug {
		res.RawOutputPath, sinkErr = c.deps.Sink.Persist(res.RunID, raw)
		if sinkErr != nil {
			c.deps.Logger.Warn("saving raw output", "err", sinkErr)
		}
	}

	var presented []report.Diagnostic
	switch res.Outcome {
	case OutcomeClean:
		res.Message = title
		c.deps.Notifier.Info(res.Message)
	case OutcomeIssues:
		presented = rep.Diagnostics
		res.Message = title
		c.deps.Notifier.Warn(res.Message)
	case OutcomeAmbiguous:
		res.Message = fmt.Sprintf(
			"%s exited with code 1 but no diagnostics could be parsed; the output format may not match%s",
			c.cfg.ToolName, rawHint(res.RawOutputPath, sinkErr))
		c.deps.Notifier.Warn(res.Message)
	case OutcomeToolFailure:
		presented = rep.Diagnostics
		res.Message = fmt.Sprintf(
			"%s failed with exit code %d; this is a tool error, not a check result%s",
			c.cfg.ToolName, res.ExitCode, rawHint(res.RawOutputPath, sinkErr))
		c.deps.Notifier.Error(res.Message)
	}

	if err := c.deps.Presenter.Present(title, presented); err != nil {
		c.deps.Logger.Warn("presenting diagnostics", "err", err)
		c.deps.Notifier.Warn("could not display diagnostics: " + err.Error())
	}
}

func rawHint(path string, err error) string {
	switch {
	case err != nil:
		return "; raw output could not be saved: " + err.Error()
	case path == "":
		return ""
	}
	return "; raw output saved to " + path
}

func launchMessage(command string, err error) string {
	if runner.IsCommandNotFound(err) {
		return fmt.Sprintf("could not start %q: command not found; set the command in .svcheck.yaml or with --command", command)
	}
	if errors.Is(err, runner.ErrEmptyCommand) {
		return "no check command configured; set the command in .svcheck.yaml or with --command"
	}
	return fmt.Sprintf("could not start %q: %v", command, err)
}

// Close stops the indicator and detaches the controller from any run still
// in flight. Later process callbacks are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	if c.state == StateRunning {
		c.deps.Indicator.Stop()
		c.state = StateIdle
	}
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}

type nopPresenter struct{}

func (nopPresenter) Present(string, []report.Diagnostic) error { return nil }

type nopSink struct{}

func (nopSink) Persist(string, []string) (string, error) { return "", nil }

type nopNotifier struct{}

func (nopNotifier) Info(string)  {}
func (nopNotifier) Warn(string)  {}
func (nopNotifier) Error(string) {}
