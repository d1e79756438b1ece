package scraper_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/mikeqd/falix-keepalive/internal/browser"
	"github.com/mikeqd/falix-keepalive/internal/logging"
	"github.com/mikeqd/falix-keepalive/internal/scraper"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

const host = "mikeqd.falixsrv.me"

var dashboards = map[string]string{
	"/offline": `<table><tr><td>other.falixsrv.me</td><td>Online</td></tr>
<tr><td>mikeqd.falixsrv.me</td><td>Offline</td><td><button>Start</button></td></tr></table>`,
	"/running": `<div class="card"><h3>mikeqd.falixsrv.me</h3><span>Running</span></div>
<div class="card"><h3>other.falixsrv.me</h3><span class="status">Offline</span></div>`,
	"/split": `<table><tr><td><b>mikeqd</b>.falixsrv.me</td><td>Offline</td></tr></table>`,
	"/absent": `<script>const known = "mikeqd.falixsrv.me";</script>
<ul><li>other.falixsrv.me <span class="badge">Online</span></li></ul>`,
}

// openDashboard needs a local Chromium; set KEEPALIVE_CHROME_TESTS=1 to run.
func openDashboard(t *testing.T) (*browser.Session, string) {
	t.Helper()
	if os.Getenv("KEEPALIVE_CHROME_TESTS") != "1" {
		t.Skip("set KEEPALIVE_CHROME_TESTS=1 to run browser tests")
	}
	mux := http.NewServeMux()
	for path, body := range dashboards {
		body := body // per-iteration copy; module targets go 1.21
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, "<!doctype html><html><body>%s</body></html>", body)
		})
	}
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

func TestDashboardStatusInChrome(t *testing.T) {
	s, base := openDashboard(t)

	tests := []struct {
		path string
		want types.ServerStatus
	}{
		{"/offline", types.StatusOffline},
		{"/running", types.StatusOnline},
		{"/split", types.StatusOffline},
		{"/absent", types.StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p := scraper.NewProber(base+tt.path, host, logging.Discard())
			got, err := p.ProbeStatus(context.Background(), s)
			if err != nil {
				t.Fatalf("ProbeStatus: %v", err)
			}
			if got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
		})
	}
}
