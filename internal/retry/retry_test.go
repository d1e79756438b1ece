package retry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mikeqd/falix-keepalive/internal/clock"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

func fastPolicy(retries int) types.RetryPolicy {
	return types.RetryPolicy{Retries: retries, Factor: 2, BaseDelay: time.Millisecond}
}

func TestDoSucceedsWithinBudget(t *testing.T) {
	var buf bytes.Buffer
	calls := 0
	err := Do(context.Background(), clock.NewFake(time.Unix(0, 0)), fastPolicy(2), "Login", testLogger(&buf), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return types.ErrAuth
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if n := strings.Count(buf.String(), "Login attempt failed"); n != 2 {
		t.Errorf("logged %d failed attempts, want 2:\n%s", n, buf.String())
	}
	if !strings.Contains(buf.String(), "attempt=1 retries_left=2") ||
		!strings.Contains(buf.String(), "attempt=2 retries_left=1") {
		t.Errorf("attempt numbering wrong:\n%s", buf.String())
	}
}

func TestDoGivesUpAfterRetries(t *testing.T) {
	var buf bytes.Buffer
	calls := 0
	err := Do(context.Background(), clock.NewFake(time.Unix(0, 0)), fastPolicy(1), "Start", testLogger(&buf), func(ctx context.Context) error {
		calls++
		return types.ErrStart
	})
	if !errors.Is(err, types.ErrStart) {
		t.Fatalf("Do() = %v, want ErrStart", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestDoPermanentStopsImmediately(t *testing.T) {
	calls := 0
	err := Do(context.Background(), clock.NewFake(time.Unix(0, 0)), fastPolicy(5), "Login", testLogger(&bytes.Buffer{}), func(ctx context.Context) error {
		calls++
		return Permanent(types.ErrConfig)
	})
	if !errors.Is(err, types.ErrConfig) {
		t.Fatalf("Do() = %v, want ErrConfig", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, clock.NewFake(time.Unix(0, 0)), types.RetryPolicy{Retries: 3, Factor: 2, BaseDelay: time.Hour}, "Login", testLogger(&bytes.Buffer{}), func(ctx context.Context) error {
		calls++
		cancel()
		return types.ErrAuth
	})
	if err == nil {
		t.Fatal("Do() = nil, want error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestNewBackOffSchedule(t *testing.T) {
	b := NewBackOff(types.RetryPolicy{Retries: 3, Factor: 2, BaseDelay: time.Second})
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Errorf("wait %d = %v, want %v", i+1, got, w)
		}
	}
	if got := b.NextBackOff(); got >= 0 {
		t.Errorf("wait after retries exhausted = %v, want Stop", got)
	}
}

func TestDoZeroRetriesRunsOnce(t *testing.T) {
	calls := 0
	err := Do(context.Background(), clock.NewFake(time.Unix(0, 0)), fastPolicy(0), "Start", testLogger(&bytes.Buffer{}), func(ctx context.Context) error {
		calls++
		return types.ErrStart
	})
	if !errors.Is(err, types.ErrStart) {
		t.Fatalf("Do() = %v, want ErrStart", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoWaitsOnClock(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	calls := 0
	err := Do(context.Background(), clk, types.RetryPolicy{Retries: 3, Factor: 2, BaseDelay: time.Second}, "Login", testLogger(&bytes.Buffer{}), func(ctx context.Context) error {
		calls++
		return types.ErrAuth
	})
	if !errors.Is(err, types.ErrAuth) {
		t.Fatalf("Do() = %v, want ErrAuth", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	got := clk.Sleeps()
	if len(got) != len(want) {
		t.Fatalf("sleeps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sleep %d = %v, want %v", i+1, got[i], want[i])
		}
	}
}
