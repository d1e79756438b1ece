package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikeqd/falix-keepalive/internal/browser/browsertest"
	"github.com/mikeqd/falix-keepalive/internal/clock"
	"github.com/mikeqd/falix-keepalive/internal/logging"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

const adWatch = 35 * time.Second

func newStarter(clk clock.Clock) *Starter {
	return NewStarter("https://client.example.test/", adWatch, clk, logging.Discard())
}

func TestStartServerWithAd(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	p := browsertest.New()
	p.Set(".btn-start", 1)
	p.SetBody("Server offline")
	p.OnClick = func(name string) {
		switch name {
		case ".btn-start":
			p.Set(`.modal, .popup, .overlay, [class*="modal"], [class*="popup"]`, 1)
			p.Set("button:watch-ad", 1)
		case "button:watch-ad":
			p.Set("button:watch-ad", 0)
			p.Set(`.close, .close-btn, .close-button, .btn-close, .modal-close`, 1)
		case `.close, .close-btn, .close-button, .btn-close, .modal-close`:
			p.Set(`.close, .close-btn, .close-button, .btn-close, .modal-close`, 0)
			p.SetBody("Server is running")
		}
	}

	if err := newStarter(clk).StartServer(context.Background(), p); err != nil {
		t.Fatalf("StartServer: %v", err)
	}

	if nav := p.Navigations(); len(nav) != 1 || nav[0] != "https://client.example.test/server/console" {
		t.Errorf("navigations = %v", nav)
	}
	want := []string{".btn-start", "button:watch-ad", ".close, .close-btn, .close-button, .btn-close, .modal-close"}
	got := p.Clicks()
	if len(got) != len(want) {
		t.Fatalf("clicks = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("click %d = %s, want %s", i, got[i], want[i])
		}
	}
	wantSleeps := []time.Duration{2 * time.Second, adWatch, 500 * time.Millisecond, 3 * time.Second}
	sleeps := clk.Sleeps()
	if len(sleeps) != len(wantSleeps) {
		t.Fatalf("sleeps = %v, want %v", sleeps, wantSleeps)
	}
	for i := range wantSleeps {
		if sleeps[i] != wantSleeps[i] {
			t.Errorf("sleep %d = %v, want %v", i, sleeps[i], wantSleeps[i])
		}
	}
}

func TestStartServerNoModal(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	p := browsertest.New()
	p.Set("button:start", 1)
	p.OnClick = func(string) { p.SetBody("Status: Online") }

	if err := newStarter(clk).StartServer(context.Background(), p); err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	if got := clk.Slept(); got != 5*time.Second {
		t.Errorf("slept %v, want 2s modal check + 3s settle", got)
	}
}

func TestStartServerModalWithoutWatchButton(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	p := browsertest.New()
	p.Set("#start", 1)
	p.Set(`.modal, .popup, .overlay, [class*="modal"], [class*="popup"]`, 1)
	p.OnClick = func(string) { p.SetBody("started") }

	if err := newStarter(clk).StartServer(context.Background(), p); err != nil {
		t.Fatalf("StartServer: %v", err)
	}
	if got := clk.Slept(); got != 5*time.Second {
		t.Errorf("slept %v; the ad wait must be skipped without a watch button", got)
	}
}

func TestStartServerAlreadyRunning(t *testing.T) {
	p := browsertest.New()
	p.SetBody("Your server is running")

	if err := newStarter(clock.NewFake(time.Unix(0, 0))).StartServer(context.Background(), p); err != nil {
		t.Fatalf("StartServer = %v, want nil for an already running server", err)
	}
	if got := p.Clicks(); len(got) != 0 {
		t.Errorf("clicked %v on an already running server", got)
	}
}

func TestStartServerNoControl(t *testing.T) {
	p := browsertest.New()
	p.SetBody("Console")
	err := newStarter(clock.NewFake(time.Unix(0, 0))).StartServer(context.Background(), p)
	if !errors.Is(err, types.ErrElementNotFound) {
		t.Errorf("StartServer = %v, want ErrElementNotFound", err)
	}
}

func TestStartServerNoSuccessSignal(t *testing.T) {
	p := browsertest.New()
	p.Set("button:start", 1)
	p.SetBody("Server offline")
	err := newStarter(clock.NewFake(time.Unix(0, 0))).StartServer(context.Background(), p)
	if !errors.Is(err, types.ErrStart) {
		t.Errorf("StartServer = %v, want ErrStart", err)
	}
}

func TestStartServerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := browsertest.New()
	p.Set("button:start", 1)
	p.OnClick = func(string) { cancel() }
	err := newStarter(clock.NewFake(time.Unix(0, 0))).StartServer(ctx, p)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("StartServer = %v, want context.Canceled", err)
	}
}
