// Command svcheck runs svelte-check in machine-output mode, turns its output
// into diagnostics and reports them with an exit code a script can trust.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dkoosis/svcheck/internal/config"
	"github.com/dkoosis/svcheck/internal/version"
)

// Exit codes not tied to a run outcome.
const (
	exitUsage       = 2
	exitInterrupted = 130
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// app carries the parsed flags and I/O for one invocation.
type app struct {
	flags    config.CliFlags
	exitCode int

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	cwd    string
}

// run executes the CLI and returns the exit code, so tests can drive it
// without os.Exit.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, getenv: os.Getenv, cwd: cwd}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		if errors.Is(err, context.Canceled) {
			return exitInterrupted
		}
		return exitUsage
	}
	return a.exitCode
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "svcheck",
		Short: "Run svelte-check and report its diagnostics",
		Long: `svcheck runs svelte-check with --output machine, parses every line,
and reports the diagnostics. The exit code is 0 when the check is clean,
1 when it reported issues, and 2 when the checker itself failed or could
not be started.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			f := cmd.Flags()
			a.flags.CommandSet = f.Changed("command")
			a.flags.DebugSet = f.Changed("debug")
			a.flags.AltViewSet = f.Changed("alt-view")
		},
		RunE: a.runCheck,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.Command, "command", "", `check command, e.g. "pnpm svelte-check" (default "`+config.DefaultCommand+`")`)
	pf.BoolVar(&a.flags.Debug, "debug", false, "trace every output line and keep raw output for every run")
	pf.BoolVar(&a.flags.AltView, "alt-view", false, "browse results in an interactive list")
	pf.StringVar(&a.flags.Format, "format", "", "output format: terminal, json, sarif, quickfix")
	pf.StringVar(&a.flags.Theme, "theme", "", "terminal theme: default, orca, mono")
	pf.StringVar(&a.flags.Spinner, "spinner", "", "spinner frames or style name (braille, dots, line, arc)")
	pf.StringVar(&a.flags.RawDir, "raw-dir", "", "directory for retained raw output (default .svcheck)")
	pf.StringVar(&a.flags.ConfigPath, "config", "", "path to config file")

	root.AddCommand(a.runCmd(), a.watchCmd(), a.parseCmd(), a.versionCmd(), a.legacyCmd())
	return root
}

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one check (default)",
		Args:  cobra.NoArgs,
		RunE:  a.runCheck,
	}
}

// legacyCmd keeps the old command name working.
func (a *app) legacyCmd() *cobra.Command {
	return &cobra.Command{
		Use:        "svelte-check",
		Short:      "Run one check",
		Hidden:     true,
		Deprecated: `use "svcheck run" instead`,
		Args:       cobra.NoArgs,
		RunE:       a.runCheck,
	}
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.String())
		},
	}
}

func (a *app) runCheck(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := a.setup()
	if err != nil {
		return err
	}
	ctl := s.controller(nil, nil)
	defer ctl.Close()

	res, err := ctl.Run(ctx)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		a.exitCode = exitInterrupted
		return nil
	}
	a.exitCode = res.Outcome.ExitCode()
	return nil
}
