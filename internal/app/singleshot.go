package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mikeqd/falix-keepalive/internal/browser"
	"github.com/mikeqd/falix-keepalive/internal/config"
	"github.com/mikeqd/falix-keepalive/internal/selectors"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

// RunSingleShot opens the start-trigger page, sits through the ad, clicks
// Start and waits for the page to report the server up. Exactly one
// notification goes out either way. Failures are returned wrapping ErrStart.
func (a *App) RunSingleShot(ctx context.Context) error {
	s := a.getSnapshot()
	cfg := s.config
	runID := uuid.NewString()
	log := a.log.With("run_id", runID, "mode", config.ModeSingleShot.String())

	a.startRun(ctx, runID, config.ModeSingleShot)
	res := types.CycleResult{Seq: 1, Status: types.StatusUnknown, StartedAt: a.clk.Now()}

	clicked, err := a.singleShot(ctx, s, log)

	res.Duration = a.clk.Now().Sub(res.StartedAt)
	var text string
	if err != nil {
		if !errors.Is(err, types.ErrStart) {
			err = fmt.Errorf("%w: %w", types.ErrStart, err)
		}
		markFailed(&res, err)
		log.Error("Attempt failed", "error", err)
		text = "Falix keep-alive attempt failed: " + err.Error()
	} else {
		res.Status = types.StatusOnline
		res.Outcome = types.OutcomeSuccess
		how := "auto-started"
		if clicked {
			res.Outcome = types.OutcomeActionTaken
			how = "clicked Start"
		}
		log.Info("Success", "how", how)
		text = fmt.Sprintf("Falix keep-alive success for %s (%s)", cfg.Dashboard.ServerHost, how)
	}

	a.notify(ctx, text)
	a.metrics.ObserveCycle(res)
	if a.store != nil {
		if rerr := a.store.RecordCycle(context.WithoutCancel(ctx), runID, res); rerr != nil {
			log.Warn("Could not record attempt", "error", rerr)
		}
	}
	a.finishRun(ctx, runID, 1, res.Outcome)
	return err
}

func (a *App) singleShot(ctx context.Context, s snapshot, log *slog.Logger) (clicked bool, err error) {
	cfg := s.config

	page, err := a.open(ctx, sessionOptions(cfg, true, log))
	if err != nil {
		return false, fmt.Errorf("open browser: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			log.Warn("Browser did not close cleanly", "error", cerr)
		}
	}()

	target := cfg.StartURL()
	log.Info("Opening start page", "url", target)
	if err := page.Navigate(ctx, target); err != nil {
		return false, fmt.Errorf("open start page: %w", err)
	}

	log.Info("Waiting for ad to finish", "wait", cfg.Timing.AdWatch.Duration)
	if err := a.clk.Sleep(ctx, cfg.Timing.AdWatch.Duration); err != nil {
		return false, err
	}

	s.starter.CloseAds(ctx, page)

	loc, err := browser.ClickFirst(ctx, page, selectors.TriggerStart)
	if err == nil {
		clicked = true
		log.Info("Clicked start control", "locator", loc.String())
	} else {
		log.Info("No start control found, waiting for the server anyway")
	}

	marker, ok := browser.WaitText(ctx, a.clk, page, selectors.TriggerSuccessMarkers, cfg.Timing.SuccessWait.Duration)
	if !ok {
		if ctx.Err() != nil {
			return clicked, ctx.Err()
		}
		a.capture(ctx, page, "single-shot", log)
		return clicked, fmt.Errorf("%w: no success signal detected after ad/attempt", types.ErrStart)
	}
	log.Info("Success signal detected", "marker", marker)
	return clicked, nil
}
