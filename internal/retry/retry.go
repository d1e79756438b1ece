// Package retry runs a step with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mikeqd/falix-keepalive/internal/clock"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

// Op is one attempt of a retried step.
type Op func(ctx context.Context) error

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// NewBackOff returns the deterministic exponential schedule for p.
func NewBackOff(p types.RetryPolicy) backoff.BackOff {
	// WithMaxRetries treats 0 as unlimited.
	if p.Retries <= 0 {
		return &backoff.StopBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Factor
	b.RandomizationFactor = 0
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, uint64(p.Retries))
}

// clockTimer is a backoff.Timer that waits on a clock.Clock. Start blocks
// for the whole wait; the channel is buffered so the tick is never lost.
type clockTimer struct {
	ctx context.Context
	clk clock.Clock
	c   chan time.Time
}

func newClockTimer(ctx context.Context, clk clock.Clock) *clockTimer {
	return &clockTimer{ctx: ctx, clk: clk, c: make(chan time.Time, 1)}
}

func (t *clockTimer) Start(d time.Duration) {
	if err := t.clk.Sleep(t.ctx, d); err != nil {
		return
	}
	select {
	case t.c <- t.clk.Now():
	default:
	}
}

func (t *clockTimer) Stop() {
	select {
	case <-t.c:
	default:
	}
}

func (t *clockTimer) C() <-chan time.Time { return t.c }

// Do runs op until it succeeds, returns a permanent error, the policy's
// retries are used up or ctx is done. Waits between attempts go through clk.
// Before each retry it logs the failed attempt number and the retries left.
// The last error is returned.
func Do(ctx context.Context, clk clock.Clock, p types.RetryPolicy, name string, log *slog.Logger, op Op) error {
	if log == nil {
		log = slog.Default()
	}
	if clk == nil {
		clk = clock.Real{}
	}

	attempt := 0
	operation := func() error {
		attempt++
		return op(ctx)
	}
	notify := func(err error, wait time.Duration) {
		log.Warn(name+" attempt failed",
			"attempt", attempt,
			"retries_left", p.Retries-attempt+1,
			"retry_in", wait,
			"error", err,
		)
	}

	err := backoff.RetryNotifyWithTimer(operation, backoff.WithContext(NewBackOff(p), ctx), notify, newClockTimer(ctx, clk))
	if err == nil {
		return nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}
