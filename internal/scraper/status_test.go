package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mikeqd/falix-keepalive/internal/browser/browsertest"
	"github.com/mikeqd/falix-keepalive/internal/logging"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		container string
		badges    []string
		want      types.ServerStatus
	}{
		{"container offline", "mikeqd.falixsrv.me  OFFLINE  Start", nil, types.StatusOffline},
		{"container online", "mikeqd.falixsrv.me Online 2/20 players", nil, types.StatusOnline},
		{"container running", "mikeqd.falixsrv.me is Running", nil, types.StatusOnline},
		{"offline beats online in one container", "was online, now offline", nil, types.StatusOffline},
		{"container wins over badges", "Offline", []string{"Online"}, types.StatusOffline},
		{"badge fallback", "mikeqd.falixsrv.me", []string{"Plan: Free", "Online", "Offline"}, types.StatusOnline},
		{"first badge match wins", "", []string{"", "offline", "running"}, types.StatusOffline},
		{"nothing recognisable", "mikeqd.falixsrv.me", []string{"Free"}, types.StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.container, tt.badges); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProbeStatus(t *testing.T) {
	tests := []struct {
		name string
		raw  rawServerInfo
		want types.ServerStatus
	}{
		{"offline", rawServerInfo{ServerFound: true, ContainerText: "host Offline"}, types.StatusOffline},
		{"online via badge", rawServerInfo{ServerFound: true, Badges: []string{"Online"}}, types.StatusOnline},
		{"server missing", rawServerInfo{ServerFound: false, ContainerText: "Offline"}, types.StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := browsertest.New()
			p.SetEval("createTreeWalker", tt.raw)
			prober := NewProber("https://client.example.test", "mikeqd.falixsrv.me", logging.Discard())

			got, err := prober.ProbeStatus(context.Background(), p)
			if err != nil {
				t.Fatalf("ProbeStatus: %v", err)
			}
			if got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
			if nav := p.Navigations(); len(nav) != 1 || nav[0] != "https://client.example.test" {
				t.Errorf("navigations = %v", nav)
			}
		})
	}
}

func TestProbeStatusNavigationError(t *testing.T) {
	p := browsertest.New()
	p.NavigateErr = errors.New("timeout")
	got, err := NewProber("https://client.example.test", "h", logging.Discard()).ProbeStatus(context.Background(), p)
	if err == nil || got != types.StatusUnknown {
		t.Errorf("ProbeStatus = %s, %v", got, err)
	}
}

func TestProbeScriptEscapesHost(t *testing.T) {
	s := probeScript(`evil".host`)
	if !strings.Contains(s, `"evil\".host"`) {
		t.Errorf("host not escaped:\n%s", s)
	}
	if !strings.Contains(s, `"tr, .card, .server-item, .server-row, li"`) {
		t.Error("container selector missing")
	}
}
