package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/dkoosis/svcheck/internal/config"
	"github.com/dkoosis/svcheck/internal/controller"
	"github.com/dkoosis/svcheck/internal/logging"
	"github.com/dkoosis/svcheck/internal/present"
	"github.com/dkoosis/svcheck/internal/project"
	"github.com/dkoosis/svcheck/internal/sink"
	"github.com/dkoosis/svcheck/internal/spinner"
	"github.com/dkoosis/svcheck/internal/version"
	"github.com/dkoosis/svcheck/pkg/runner"
)

// quickfixName is the quickfix file written under the raw output directory.
const quickfixName = "quickfix.txt"

// stack is everything a run needs, built from the resolved configuration.
type stack struct {
	app      *app
	cfg      *config.Resolved
	log      *slog.Logger
	root     string // project root, or the working directory when none
	rawDir   string
	theme    present.Theme
	notifier *present.Notifier
}

func (a *app) setup() (*stack, error) {
	cfg, err := config.Resolve(a.flags, a.cwd, a.getenv)
	if err != nil {
		return nil, err
	}
	log := logging.New(a.stderr, cfg.Debug)
	log.Debug("config resolved",
		"file", cfg.Source,
		"command", cfg.Command, "command_source", cfg.CommandSource,
		"debug_source", cfg.DebugSource,
		"format", cfg.Format, "format_source", cfg.FormatSource)

	root, ok := project.ResolverFrom(a.cwd, cfg.ProjectMarkers)()
	if !ok {
		log.Debug("no project marker found, using working directory", "markers", cfg.ProjectMarkers)
		root = a.cwd
	}
	rawDir := cfg.RawOutputDir
	if !filepath.IsAbs(rawDir) {
		rawDir = filepath.Join(root, rawDir)
	}

	theme := present.ThemeByName(cfg.Theme, cfg.NoColor)
	return &stack{
		app:      a,
		cfg:      cfg,
		log:      log,
		root:     root,
		rawDir:   rawDir,
		theme:    theme,
		notifier: present.NewNotifier(a.stderr, theme),
	}, nil
}

// presenter picks the output for the configured format.
func (s *stack) presenter() present.Presenter {
	out := s.app.stdout
	switch s.cfg.Format {
	case "json":
		return present.NewJSON(out)
	case "sarif":
		return present.NewSARIF(out, controller.DefaultToolName, version.Resolved())
	case "quickfix":
		return present.Multi{
			present.NewQuickfix(filepath.Join(s.rawDir, quickfixName)),
			present.NewTerminal(out, s.theme),
		}
	}
	if s.cfg.UseAlternateResultsView && isTerminal(out) {
		return present.NewBrowser(s.theme, present.NewEditor("", s.root), s.app.stdin, out)
	}
	return present.NewTerminal(out, s.theme)
}

// indicator draws a spinner on stderr when it is a terminal.
func (s *stack) indicator() spinner.Indicator {
	if !isTerminal(s.app.stderr) {
		return spinner.Nop{}
	}
	return spinner.New(spinner.Config{
		Frames:   spinner.ParseFrames(s.cfg.SpinnerFrames),
		Interval: s.cfg.SpinnerInterval,
		Message:  fmt.Sprintf("%s running…", controller.DefaultToolName),
		Color:    s.theme.Icons.Spinner,
		Writer:   s.app.stderr,
	})
}

// controller builds a controller. A nil launcher runs the configured command.
func (s *stack) controller(launcher controller.Launcher, onComplete func(controller.Result)) *controller.Controller {
	if launcher == nil {
		launcher = runner.New(runner.WithLogger(s.log))
	}
	return controller.New(
		controller.Config{Command: s.cfg.Command, Debug: s.cfg.Debug},
		controller.Deps{
			Launcher:   launcher,
			FindRoot:   func() (string, bool) { return s.root, true },
			Presenter:  s.presenter(),
			Sink:       sink.NewFile(s.rawDir),
			Indicator:  s.indicator(),
			Notifier:   s.notifier,
			Logger:     s.log,
			OnComplete: onComplete,
		},
	)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
