package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkoosis/svcheck/internal/controller"
	"github.com/dkoosis/svcheck/internal/watch"
)

type triggerFunc func(ctx context.Context) error

func (f triggerFunc) Start(ctx context.Context) error { return f(ctx) }

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-run the check whenever source files change",
		Long: `watch runs the check once, then again after every change to a
watched source file. A change during a run schedules one more run after
it finishes. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: a.runWatch,
	}
}

func (a *app) runWatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := a.setup()
	if err != nil {
		return err
	}

	var ctl *controller.Controller
	w, err := watch.New(s.root, triggerFunc(func(ctx context.Context) error { return ctl.Start(ctx) }), watch.Options{
		Extensions: s.cfg.Watch.Extensions,
		Debounce:   s.cfg.Watch.Debounce,
		Logger:     s.log,
	})
	if err != nil {
		return err
	}
	ctl = s.controller(nil, func(controller.Result) { w.Idle() })
	defer ctl.Close()

	s.notifier.Info(fmt.Sprintf("watching %s", s.root))
	if err := ctl.Start(ctx); err != nil {
		return err
	}
	return w.Run(ctx)
}
