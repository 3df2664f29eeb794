package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MomentumTracker/internal/runner"
	"MomentumTracker/internal/scheduler"

	"github.com/spf13/cobra"
)

// serveCmd runs the weekly schedule and the Telegram command loop.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the weekly schedule until interrupted",
	Long: `Register the weekly cron job and, when Telegram credentials are set,
answer /nav, /holdings, /history and /run commands. Set RUN_ON_START=true
to run immediately on startup.`,
	RunE: serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var n runner.Notifier
	if a.notifier != nil {
		n = a.notifier
	}
	sched := scheduler.NewScheduler(ctx, a.runner, a.store, a.recorder, n, a.log)
	if err := sched.Register(a.cfg.Schedule.WeeklyCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if a.notifier != nil {
		go a.notifier.StartPolling(ctx, sched.HandleCommand)
		a.log.Info().Msg("telegram polling started")
	} else {
		a.log.Info().Msg("telegram not configured, notifications disabled")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		a.log.Info().Msg("RUN_ON_START enabled, executing weekly task now")
		go sched.RunNow()
	}

	a.log.Info().Str("cron", a.cfg.Schedule.WeeklyCron).Msg("tracker is running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	a.log.Info().Msg("shutdown signal received, stopping")
	cancel()
	return nil
}
