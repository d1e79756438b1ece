package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/mikeqd/falix-keepalive/internal/artifacts"
	"github.com/mikeqd/falix-keepalive/internal/config"
	"github.com/mikeqd/falix-keepalive/internal/logging"
	"github.com/mikeqd/falix-keepalive/internal/store"
)

const pushTimeout = 10 * time.Second

// FromConfig builds an App with the optional history store and screenshot
// sinks cfg enables. Optional parts that fail to initialise are logged and
// left off. The returned func releases them.
func FromConfig(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, func()) {
	d := Deps{Logger: log}

	if cfg.History.DBPath != "" {
		st, err := store.New(cfg.History.DBPath)
		if err != nil {
			log.Warn("Run history disabled", "path", cfg.History.DBPath, "error", err)
		} else {
			d.Store = st
		}
	}
	d.Sink = artifacts.FromConfig(ctx, cfg.Screenshots, logging.Component(log, "artifacts"))

	a := New(cfg, d)
	return a, func() {
		if d.Store != nil {
			if err := d.Store.Close(); err != nil {
				log.Warn("Could not close history store", "error", err)
			}
		}
	}
}

// PushMetrics sends the collected metrics to the configured Pushgateway.
// Failures are logged only.
func (a *App) PushMetrics(ctx context.Context, mode config.Mode) {
	url := a.getSnapshot().config.Metrics.PushgatewayURL
	if url == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	if err := a.metrics.Push(ctx, url, mode.String()); err != nil {
		a.log.Warn("Could not push metrics", "error", err)
		return
	}
	a.log.Debug("Metrics pushed", "url", url)
}
