package main

import (
	"context"
	"errors"
	"fmt"

	"alpha_innotec_planner/internal/handlers"
	"alpha_innotec_planner/internal/logger"
	"alpha_innotec_planner/internal/server"
	"alpha_innotec_planner/internal/service"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the planner on its cron schedule and expose the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		sched, err := newScheduler(ctx, a.cfg.Schedule.Cron, a.planning, a.log.Named("cron"))
		if err != nil {
			return err
		}
		sched.Start()
		defer func() { <-sched.Stop().Done() }()

		srv := &server.Server{}
		if err := runHTTPServer(srv, a.cfg.HTTP.Port, handlers.NewHandler(a.services, a.log.Named("http")), a.log); err != nil {
			return err
		}
		waitForShutdown(ctx, srv, a.log)
		return nil
	},
}

// newScheduler registers one planner run per cron tick. Ticks that fire
// while a run is still busy are dropped. A run already in progress when
// ctx is cancelled finishes, and Stop waits for it.
func newScheduler(ctx context.Context, spec string, planning service.Planning, log *logger.Logger) (*cron.Cron, error) {
	cl := cronLogger{log}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	_, err := c.AddFunc(spec, func() {
		runCtx, cancel := service.DetachRun(ctx)
		defer cancel()
		res, err := planning.Run(runCtx)
		switch {
		case errors.Is(err, service.ErrRunInProgress):
			log.Infow("scheduled_run_skipped", "reason", "busy")
		case err != nil:
			log.Errorw("scheduled_run_failed", "run_id", res.RunID, "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	log.Infow("scheduler_ready", "spec", spec)
	return c, nil
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorw(msg, append([]any{"err", err}, keysAndValues...)...)
}
