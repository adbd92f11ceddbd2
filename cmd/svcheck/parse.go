package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dkoosis/svcheck/pkg/machine"
	"github.com/dkoosis/svcheck/pkg/report"
	"github.com/dkoosis/svcheck/pkg/runner"
)

func (a *app) parseCmd() *cobra.Command {
	var exitCode int
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Report machine output read from stdin",
		Long: `parse reads svelte-check machine output from stdin, as produced by
"svelte-check --output machine", and reports it like a run. Pass the
checker's exit status with --exit-code; without it the status is 1 when
the output reports any error and 0 otherwise.`,
		Example: `  npx svelte-check --output machine > check.log; svcheck parse --exit-code $? < check.log`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.setup()
			if err != nil {
				return err
			}
			code := -1
			if cmd.Flags().Changed("exit-code") {
				code = exitCode
			}
			ctl := s.controller(&replayLauncher{r: cmd.InOrStdin(), exitCode: code, log: s.log}, nil)
			defer ctl.Close()

			res, err := ctl.Run(cmd.Context())
			if err != nil {
				return err
			}
			a.exitCode = res.Outcome.ExitCode()
			return nil
		},
	}
	cmd.Flags().IntVar(&exitCode, "exit-code", 0, "exit status of the svelte-check run that produced the input")
	return cmd
}

// replayLauncher feeds lines from a reader through the run pipeline as if a
// process had printed them. A negative exitCode is inferred from the lines.
type replayLauncher struct {
	r        io.Reader
	exitCode int
	log      *slog.Logger
}

func (l *replayLauncher) Start(ctx context.Context, _, _ string, onLine runner.LineFunc, onExit runner.ExitFunc) error {
	go func() {
		agg := report.NewAggregator()
		err := runner.ReadLines(l.r, runner.DefaultMaxLineLength,
			func(line string) {
				if ctx.Err() != nil {
					return
				}
				agg.Ingest(machine.Parse(line))
				onLine(line, false)
			},
			func(n int) {
				l.log.Warn("skipping overlong input line", "bytes", n, "limit", runner.DefaultMaxLineLength)
			},
		)
		if err != nil {
			l.log.Warn("reading input", "err", err)
		}
		code := l.exitCode
		if code < 0 {
			code = 0
			if errs, _ := agg.Finalize().Counts(); errs > 0 {
				code = 1
			}
		}
		onExit(code)
	}()
	return nil
}
