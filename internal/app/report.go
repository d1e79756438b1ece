package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikeqd/falix-keepalive/internal/browser"
	"github.com/mikeqd/falix-keepalive/internal/config"
	"github.com/mikeqd/falix-keepalive/internal/logging"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

const notifyTimeout = 30 * time.Second

func sessionOptions(cfg *config.Config, singleShot bool, log *slog.Logger) browser.SessionOptions {
	opts := browser.SessionOptions{
		Headless:          cfg.Browser.Headless,
		ExecPath:          cfg.Browser.ExecPath,
		NavigationTimeout: cfg.Timing.NavigationTimeout.Duration,
		ActionTimeout:     cfg.Timing.ActionTimeout.Duration,
		Logger:            logging.Component(log, "browser"),
	}
	if singleShot {
		opts.NavigationTimeout = cfg.Timing.SingleShotTimeout.Duration
		opts.ActionTimeout = cfg.Timing.SingleShotTimeout.Duration
	}
	return opts
}

// finishCycle logs, records and optionally announces a cycle result.
func (a *App) finishCycle(ctx context.Context, res types.CycleResult, log *slog.Logger) {
	if res.Failed() {
		log.Error("Check failed", "status", res.Status, "reason", res.Reason, "duration", res.Duration)
	} else {
		log.Info("Check completed", "outcome", res.Outcome, "status", res.Status, "duration", res.Duration)
	}

	a.metrics.ObserveCycle(res)

	if id := runIDFrom(ctx); id != "" && a.store != nil {
		if err := a.store.RecordCycle(context.WithoutCancel(ctx), id, res); err != nil {
			log.Warn("Could not record check", "error", err)
		}
	}

	cfg := a.getSnapshot().config
	if cfg.Notify.Loop && res.Outcome != types.OutcomeSuccess {
		a.notify(ctx, cycleMessage(cfg.Dashboard.ServerHost, res))
	}
}

func cycleMessage(host string, res types.CycleResult) string {
	if res.Failed() {
		return fmt.Sprintf("Falix keep-alive check %d failed for %s: %s", res.Seq, host, res.Reason)
	}
	return fmt.Sprintf("Falix keep-alive: %s was offline and has been started", host)
}

// notify delivers text on every channel. Failures are counted and logged,
// never returned.
func (a *App) notify(ctx context.Context, text string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := a.notifier.Notify(ctx, text); err != nil {
		a.metrics.NotificationFailures.Inc()
	}
}

// capture saves a screenshot of page when a sink is configured.
func (a *App) capture(ctx context.Context, page browser.Page, name string, log *slog.Logger) {
	if a.sink == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	shot, err := page.Screenshot(ctx)
	if err != nil {
		log.Warn("Could not take failure screenshot", "error", err)
		return
	}
	loc, err := a.sink.Save(ctx, name, shot)
	if err != nil {
		log.Warn("Could not save failure screenshot", "error", err)
	}
	if loc != "" {
		log.Info("Saved failure screenshot", "location", loc)
	}
}
