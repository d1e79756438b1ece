// Command falix-keepalive keeps a Falix server awake: it logs into the
// dashboard on an interval and starts the server whenever it is offline.
// A run ends on its own once the configured runtime budget is spent, so it
// fits an external cron. With --daemon it schedules runs itself.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikeqd/falix-keepalive/internal/app"
	"github.com/mikeqd/falix-keepalive/internal/config"
	"github.com/mikeqd/falix-keepalive/internal/logging"
	"github.com/mikeqd/falix-keepalive/internal/scheduler"
)

func main() {
	os.Exit(run())
}

func run() int {
	daemon := flag.Bool("daemon", false, "run budgeted loops on the configured cron schedule until interrupted")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Setup(os.Getenv("LOG_LEVEL")).Error("Could not load configuration", "error", err)
		return 1
	}
	log := logging.Setup(cfg.Log.Level)

	if err := cfg.Validate(config.ModeLoop); err != nil {
		log.Error("Invalid configuration", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup := app.FromConfig(ctx, cfg, log)
	defer cleanup()

	log.Info("falix-keepalive starting", "host", cfg.Dashboard.ServerHost, "daemon", *daemon)

	if *daemon {
		if err := runDaemon(ctx, a, cfg, log); err != nil {
			log.Error("Daemon failed", "error", err)
			return 1
		}
		return 0
	}

	checks := a.RunLoop(ctx)
	log.Info("Keep-alive run finished", "checks", checks)
	a.PushMetrics(ctx, config.ModeLoop)
	return 0
}

func runDaemon(ctx context.Context, a *app.App, cfg *config.Config, log *slog.Logger) error {
	// A run may use its whole budget; give teardown the same again.
	s, err := scheduler.New(cfg.Schedule.Timezone, 2*cfg.Timing.MaxRuntime.Duration, logging.Component(log, "scheduler"))
	if err != nil {
		return err
	}

	err = s.AddJob("keepalive", cfg.Schedule.Cron, func(ctx context.Context) error {
		if err := a.ReloadConfig(); err != nil {
			log.Warn("Keeping previous configuration", "error", err)
		}
		checks := a.RunLoop(ctx)
		log.Info("Keep-alive run finished", "checks", checks)
		a.PushMetrics(ctx, config.ModeLoop)
		return nil
	})
	if err != nil {
		return err
	}

	s.Start(ctx)
	for _, job := range s.ListJobs() {
		log.Info("Scheduled", "job", job.Name, "next_run", job.NextRun)
	}

	// Do not leave the server idle until the first scheduled tick.
	if err := s.RunNow("keepalive"); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("Shutting down")
	<-s.Stop().Done()
	return nil
}
