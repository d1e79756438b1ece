// Package app wires the keep-alive components together. A cycle logs in,
// probes the server and starts it when offline; a budgeted loop repeats it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mikeqd/falix-keepalive/internal/artifacts"
	"github.com/mikeqd/falix-keepalive/internal/auth"
	"github.com/mikeqd/falix-keepalive/internal/browser"
	"github.com/mikeqd/falix-keepalive/internal/clock"
	"github.com/mikeqd/falix-keepalive/internal/config"
	"github.com/mikeqd/falix-keepalive/internal/logging"
	"github.com/mikeqd/falix-keepalive/internal/metrics"
	"github.com/mikeqd/falix-keepalive/internal/notifier"
	"github.com/mikeqd/falix-keepalive/internal/recovery"
	"github.com/mikeqd/falix-keepalive/internal/retry"
	"github.com/mikeqd/falix-keepalive/internal/scheduler"
	"github.com/mikeqd/falix-keepalive/internal/scraper"
	"github.com/mikeqd/falix-keepalive/internal/store"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

// Browser is a page the app owns and must close.
type Browser interface {
	browser.Page
	Close() error
}

// OpenFunc starts a fresh browser session.
type OpenFunc func(ctx context.Context, opts browser.SessionOptions) (Browser, error)

// OpenChrome launches a local Chrome through chromedp.
func OpenChrome(ctx context.Context, opts browser.SessionOptions) (Browser, error) {
	s, err := browser.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Deps are the optional collaborators of an App. Zero values get defaults,
// except Store and Sink which stay disabled when nil.
type Deps struct {
	Clock    clock.Clock
	Logger   *slog.Logger
	Open     OpenFunc
	Notifier *notifier.Notifier
	Metrics  *metrics.Metrics
	Store    *store.Store
	Sink     artifacts.Sink
}

// App holds the application state.
type App struct {
	mu sync.RWMutex

	clk      clock.Clock
	log      *slog.Logger
	open     OpenFunc
	metrics  *metrics.Metrics
	store    *store.Store
	sink     artifacts.Sink
	notifier *notifier.Notifier

	// Mutable fields - use getSnapshot() for concurrent access.
	config  *config.Config
	auth    *auth.Manager
	prober  *scraper.Prober
	starter *recovery.Starter
}

// snapshot holds fields that may be replaced by ReloadConfig.
// Use getSnapshot() to obtain a consistent, point-in-time copy.
type snapshot struct {
	config  *config.Config
	auth    *auth.Manager
	prober  *scraper.Prober
	starter *recovery.Starter
}

// getSnapshot returns a snapshot of mutable fields under read lock.
func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{
		config:  a.config,
		auth:    a.auth,
		prober:  a.prober,
		starter: a.starter,
	}
}

// New creates a new App instance for a validated configuration.
func New(cfg *config.Config, d Deps) *App {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Open == nil {
		d.Open = OpenChrome
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Notifier == nil {
		d.Notifier = notifier.NewFromConfig(cfg, logging.Component(d.Logger, "notifier"))
	}

	a := &App{
		clk:      d.Clock,
		log:      d.Logger,
		open:     d.Open,
		metrics:  d.Metrics,
		store:    d.Store,
		sink:     d.Sink,
		notifier: d.Notifier,
	}
	a.apply(cfg)
	return a
}

func (a *App) apply(cfg *config.Config) {
	authMgr := auth.NewManager(cfg.Dashboard.BaseURL, cfg.Credentials(), a.clk, logging.Component(a.log, "auth"))
	prober := scraper.NewProber(cfg.Dashboard.BaseURL, cfg.Dashboard.ServerHost, logging.Component(a.log, "prober"))
	starter := recovery.NewStarter(cfg.Dashboard.BaseURL, cfg.Timing.AdWatch.Duration, a.clk, logging.Component(a.log, "recovery"))

	a.mu.Lock()
	a.config = cfg
	a.auth = authMgr
	a.prober = prober
	a.starter = starter
	a.mu.Unlock()
}

// Config returns the configuration in use.
func (a *App) Config() *config.Config {
	return a.getSnapshot().config
}

// Metrics returns the collectors the app records into.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// ReloadConfig reloads the configuration from disk and environment. An
// invalid configuration is rejected and the current one kept.
func (a *App) ReloadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(config.ModeLoop); err != nil {
		return err
	}
	a.apply(cfg)
	a.log.Info("Configuration reloaded")
	return nil
}

type runIDKey struct{}

// WithRunID tags ctx with the run that cycles started from it belong to.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

func runIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// RunLoop performs keep-alive cycles until the configured budget is spent
// or ctx is cancelled, and returns the number of cycles performed.
func (a *App) RunLoop(ctx context.Context) int {
	s := a.getSnapshot()
	runID := uuid.NewString()
	log := a.log.With("run_id", runID)
	ctx = WithRunID(ctx, runID)

	a.startRun(ctx, runID, config.ModeLoop)

	var worst types.Outcome
	loop := &scheduler.Loop{
		Budget: s.config.Budget(),
		Clock:  a.clk,
		Log:    logging.Component(log, "scheduler"),
		Cycle: func(ctx context.Context, n int) {
			res := a.RunCycle(ctx, n)
			worst = worse(worst, res.Outcome)
		},
	}
	checks := loop.Run(ctx)

	a.finishRun(ctx, runID, checks, worst)
	return checks
}

// worse orders outcomes failed > action_taken > success.
func worse(a, b types.Outcome) types.Outcome {
	rank := func(o types.Outcome) int {
		switch o {
		case types.OutcomeFailed:
			return 3
		case types.OutcomeActionTaken:
			return 2
		case types.OutcomeSuccess:
			return 1
		}
		return 0
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

func (a *App) startRun(ctx context.Context, runID string, mode config.Mode) {
	if a.store == nil {
		return
	}
	if err := a.store.StartRun(ctx, runID, mode.String(), a.clk.Now()); err != nil {
		a.log.Warn("Could not record run start", "error", err)
	}
}

func (a *App) finishRun(ctx context.Context, runID string, cycles int, outcome types.Outcome) {
	if a.store == nil {
		return
	}
	// Record the run even when a signal ended it.
	ctx = context.WithoutCancel(ctx)
	if err := a.store.FinishRun(ctx, runID, a.clk.Now(), cycles, string(outcome)); err != nil {
		a.log.Warn("Could not record run end", "error", err)
	}
}

// RunCycle performs one keep-alive cycle in a fresh browser session. It
// never returns an error: every failure, panics included, ends up in the
// result. The session is closed exactly once whatever happens.
func (a *App) RunCycle(ctx context.Context, n int) (res types.CycleResult) {
	s := a.getSnapshot()
	log := a.log.With("check", n)
	if id := runIDFrom(ctx); id != "" {
		log = log.With("run_id", id)
	}

	res = types.CycleResult{Seq: n, Status: types.StatusUnknown, StartedAt: a.clk.Now()}
	defer func() {
		if r := recover(); r != nil {
			markFailed(&res, fmt.Errorf("panic: %v", r))
		}
		res.Duration = a.clk.Now().Sub(res.StartedAt)
		a.finishCycle(ctx, res, log)
	}()

	page, err := a.open(ctx, sessionOptions(s.config, false, log))
	if err != nil {
		markFailed(&res, fmt.Errorf("open browser: %w", err))
		return res
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Warn("Browser did not close cleanly", "error", err)
		}
	}()

	status, started, err := a.check(ctx, s, page, log)
	res.Status = status
	switch {
	case err != nil:
		markFailed(&res, err)
		a.capture(ctx, page, fmt.Sprintf("cycle-%d", n), log)
	case started:
		res.Outcome = types.OutcomeActionTaken
	default:
		res.Outcome = types.OutcomeSuccess
	}
	return res
}

// check logs in, probes and starts the server when it is offline. started
// reports whether the start workflow ran and succeeded.
func (a *App) check(ctx context.Context, s snapshot, page browser.Page, log *slog.Logger) (status types.ServerStatus, started bool, err error) {
	err = retry.Do(ctx, a.clk, s.config.Retry.Login.Policy(), "login", log, func(ctx context.Context) error {
		return s.auth.Login(ctx, page)
	})
	if err != nil {
		return types.StatusUnknown, false, fmt.Errorf("login: %w", err)
	}

	status, err = s.prober.ProbeStatus(ctx, page)
	if err != nil {
		return types.StatusUnknown, false, fmt.Errorf("probe: %w", err)
	}

	if status != types.StatusOffline {
		return status, false, nil
	}

	log.Info("Server is offline, attempting to start")
	err = retry.Do(ctx, a.clk, s.config.Retry.Start.Policy(), "start", log, func(ctx context.Context) error {
		a.metrics.StartAttempts.Inc()
		return s.starter.StartServer(ctx, page)
	})
	if err != nil {
		return status, false, fmt.Errorf("start: %w", err)
	}
	log.Info("Server started")
	return status, true, nil
}

func markFailed(r *types.CycleResult, err error) {
	r.Outcome = types.OutcomeFailed
	r.Reason = err.Error()
	r.Err = err
}
