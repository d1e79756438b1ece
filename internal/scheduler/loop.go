package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/mikeqd/falix-keepalive/internal/clock"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

// Cycle runs one keep-alive check. n counts from 1. Failures are the
// cycle's own business; the loop never sees them.
type Cycle func(ctx context.Context, n int)

// Loop repeats a Cycle within a wall-clock budget.
type Loop struct {
	Budget types.RunBudget
	Clock  clock.Clock
	Cycle  Cycle
	Log    *slog.Logger
}

// Run performs cycles until the budget is spent and returns how many ran.
// A new cycle is never begun when the next interval wait would already
// reach the budget. Cancelling ctx stops the loop between cycles.
func (l *Loop) Run(ctx context.Context) int {
	clk := l.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	interval, budget := l.Budget.Interval, l.Budget.MaxRuntime

	log.Info("Starting keep-alive loop", "interval", interval, "max_runtime", budget)

	start := clk.Now()
	elapsed := func() time.Duration { return clk.Now().Sub(start) }
	checks := 0

	for elapsed() < budget {
		if ctx.Err() != nil {
			break
		}
		checks++
		log.Info("Performing check", "check", checks)
		l.Cycle(ctx, checks)

		if elapsed()+interval >= budget {
			break
		}

		log.Info("Waiting until next check", "wait", interval)
		if err := clk.Sleep(ctx, interval); err != nil {
			log.Info("Loop interrupted", "error", err)
			break
		}
	}

	log.Info("Keep-alive loop completed", "checks", checks, "elapsed", elapsed())
	return checks
}
