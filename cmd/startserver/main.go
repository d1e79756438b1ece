// Command startserver makes one attempt to wake the server through the
// public start page, sends a single outcome notification and exits non-zero
// when the server did not come up.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikeqd/falix-keepalive/internal/app"
	"github.com/mikeqd/falix-keepalive/internal/config"
	"github.com/mikeqd/falix-keepalive/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup(os.Getenv("LOG_LEVEL")).Error("Could not load configuration", "error", err)
		return 1
	}
	log := logging.Setup(cfg.Log.Level)

	if err := cfg.Validate(config.ModeSingleShot); err != nil {
		log.Error("Invalid configuration", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, cleanup := app.FromConfig(ctx, cfg, log)
	defer cleanup()

	err = a.RunSingleShot(ctx)
	a.PushMetrics(ctx, config.ModeSingleShot)
	if err != nil {
		return 1
	}
	return 0
}
