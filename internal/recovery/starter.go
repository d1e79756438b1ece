// Package recovery brings an offline server back: it clicks Start, sits
// through the mandatory ad and sweeps away whatever overlays remain.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mikeqd/falix-keepalive/internal/browser"
	"github.com/mikeqd/falix-keepalive/internal/clock"
	"github.com/mikeqd/falix-keepalive/internal/selectors"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

const (
	modalDelay  = 2 * time.Second
	settleDelay = 3 * time.Second
	clickSettle = 500 * time.Millisecond
)

// Starter drives the console's start workflow.
type Starter struct {
	baseURL string
	adWatch time.Duration
	clk     clock.Clock
	log     *slog.Logger
}

// NewStarter creates a Starter for the dashboard at baseURL. adWatch is how
// long the ad is left to play.
func NewStarter(baseURL string, adWatch time.Duration, clk clock.Clock, log *slog.Logger) *Starter {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Starter{
		baseURL: strings.TrimRight(baseURL, "/"),
		adWatch: adWatch,
		clk:     clk,
		log:     log,
	}
}

// StartServer opens the console and starts the server. It returns
// ErrElementNotFound when there is no start control and the server does not
// already report itself running, and ErrStart when no success text shows
// up afterwards.
func (s *Starter) StartServer(ctx context.Context, p browser.Page) error {
	s.log.Info("Attempting to start server")

	if err := p.Navigate(ctx, s.baseURL+selectors.ConsolePath); err != nil {
		return fmt.Errorf("%w: open console: %w", types.ErrStart, err)
	}

	loc, err := browser.ClickFirst(ctx, p, selectors.Start)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if marker, ok := s.started(ctx, p); ok {
			s.log.Info("No start control, server already reports running", "marker", marker)
			return nil
		}
		return fmt.Errorf("start control: %w", err)
	}
	s.log.Info("Clicked start button", "locator", loc.String())

	if err := s.clk.Sleep(ctx, modalDelay); err != nil {
		return err
	}
	if _, ok := browser.FindFirst(ctx, p, selectors.Modal); ok {
		s.log.Info("Ad modal detected, looking for watch ad button")
		if err := s.watchAd(ctx, p); err != nil {
			return err
		}
	}

	if err := s.clk.Sleep(ctx, settleDelay); err != nil {
		return err
	}
	marker, ok := s.started(ctx, p)
	if !ok {
		return fmt.Errorf("%w: server may not have started", types.ErrStart)
	}
	s.log.Info("Server started successfully", "marker", marker)
	return nil
}

func (s *Starter) watchAd(ctx context.Context, p browser.Page) error {
	loc, err := browser.ClickFirst(ctx, p, selectors.WatchAd)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Info("No watch ad button in modal")
		return nil
	}
	s.log.Info("Clicked watch ad button", "locator", loc.String())

	s.log.Info("Waiting for ad to complete", "duration", s.adWatch)
	if err := s.clk.Sleep(ctx, s.adWatch); err != nil {
		return err
	}
	s.CloseAds(ctx, p)
	return nil
}

func (s *Starter) started(ctx context.Context, p browser.Page) (string, bool) {
	body, err := p.BodyText(ctx)
	if err != nil {
		s.log.Debug("Could not read console text", "error", err)
		return "", false
	}
	return browser.ContainsAny(body, selectors.StartedMarkers...)
}
