package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mikeqd/falix-keepalive/internal/browser"
	"github.com/mikeqd/falix-keepalive/internal/logging"
)

const fixturePage = `<!doctype html>
<html><body>
<input type="email" name="email">
<button id="start" onclick="document.getElementById('state').textContent='Server is running'">Start</button>
<button style="display:none" class="hidden-start">Start</button>
<p id="state">Offline</p>
<iframe src="/frame"></iframe>
</body></html>`

const fixtureFrame = `<!doctype html><html><body><button class="close">Close</button></body></html>`

// openSession needs a local Chromium; set KEEPALIVE_CHROME_TESTS=1 to run.
func openSession(t *testing.T) (*browser.Session, string) {
	t.Helper()
	if os.Getenv("KEEPALIVE_CHROME_TESTS") != "1" {
		t.Skip("set KEEPALIVE_CHROME_TESTS=1 to run browser tests")
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, fixturePage) })
	mux.HandleFunc("/frame", func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, fixtureFrame) })
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s, err := browser.Open(context.Background(), browser.SessionOptions{
		Headless:          true,
		ExecPath:          os.Getenv("CHROME_PATH"),
		NavigationTimeout: 20 * time.Second,
		ActionTimeout:     5 * time.Second,
		Logger:            logging.Discard(),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, srv.URL
}

func TestSessionQueriesAndClicks(t *testing.T) {
	s, base := openSession(t)
	ctx := context.Background()

	if err := s.Navigate(ctx, base+"/"); err != nil {
		t.Fatalf("Navigate: %v", err)
	}

	startText := browser.Text("button", "start").Named("start-text")
	if n, err := s.Count(ctx, startText); err != nil || n != 1 {
		t.Errorf("visible start buttons = %d, %v; want 1", n, err)
	}
	if n, err := s.Count(ctx, browser.CSS("button", false)); err != nil || n != 2 {
		t.Errorf("all buttons = %d, %v; want 2", n, err)
	}
	if _, err := s.Count(ctx, browser.CSS("button:contains('x')", false)); err == nil {
		t.Error("invalid selector did not report an error")
	}

	if err := s.ClickNth(ctx, browser.CSS("#start", true), 0); err != nil {
		t.Fatalf("ClickNth: %v", err)
	}
	body, err := s.BodyText(ctx)
	if err != nil || !strings.Contains(body, "Server is running") {
		t.Errorf("body after click = %q, %v", body, err)
	}

	email := browser.CSS("input[type=email]", true)
	if err := s.Type(ctx, email, "bot@example.com"); err != nil {
		t.Fatalf("Type: %v", err)
	}
	var typed string
	if err := s.Evaluate(ctx, `document.querySelector('input[type=email]').value`, &typed); err != nil || typed != "bot@example.com" {
		t.Errorf("typed value = %q, %v", typed, err)
	}

	frames, err := s.Frames(ctx)
	if err != nil || len(frames) == 0 {
		t.Fatalf("Frames = %v, %v", frames, err)
	}
	closeBtn := browser.CSS(".close", true)
	if n, err := frames[0].Count(ctx, closeBtn); err != nil || n != 1 {
		t.Errorf("frame close buttons = %d, %v", n, err)
	}

	urls, err := s.FrameURLs(ctx)
	if err != nil || len(urls) != 1 || !strings.HasSuffix(urls[0], "/frame") {
		t.Errorf("FrameURLs = %v, %v", urls, err)
	}

	shot, err := s.Screenshot(ctx)
	if err != nil || len(shot) == 0 {
		t.Errorf("Screenshot = %d bytes, %v", len(shot), err)
	}
}

func TestSessionCloseTwice(t *testing.T) {
	s, _ := openSession(t)
	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
