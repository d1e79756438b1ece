// Package scraper reads the monitored server's status off the dashboard.
package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mikeqd/falix-keepalive/internal/browser"
	"github.com/mikeqd/falix-keepalive/internal/selectors"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

// Prober classifies the server listed on the dashboard.
type Prober struct {
	baseURL string
	host    string
	log     *slog.Logger
}

// NewProber creates a prober for host on the dashboard at baseURL.
func NewProber(baseURL, host string, log *slog.Logger) *Prober {
	if log == nil {
		log = slog.Default()
	}
	return &Prober{baseURL: baseURL, host: host, log: log}
}

// rawServerInfo is what the page script extracts from the dashboard DOM
type rawServerInfo struct {
	ServerFound   bool     `json:"serverFound"`
	ContainerText string   `json:"containerText"`
	Badges        []string `json:"badges"`
}

// ProbeStatus opens the dashboard and classifies the server. Only navigation
// and script failures are errors; markup it cannot read yields StatusUnknown.
func (p *Prober) ProbeStatus(ctx context.Context, page browser.Page) (types.ServerStatus, error) {
	p.log.Info("Checking server status", "host", p.host)

	if err := page.Navigate(ctx, p.baseURL); err != nil {
		return types.StatusUnknown, fmt.Errorf("open dashboard: %w", err)
	}

	var raw rawServerInfo
	if err := page.Evaluate(ctx, probeScript(p.host), &raw); err != nil {
		return types.StatusUnknown, fmt.Errorf("read dashboard: %w", err)
	}

	if !raw.ServerFound {
		p.log.Warn("Server not found in the list", "host", p.host)
		return types.StatusUnknown, nil
	}

	status := Classify(raw.ContainerText, raw.Badges)
	p.log.Info("Server status", "host", p.host, "status", status)
	return status, nil
}

// Classify maps the text around the server entry to a status. The container
// wins when it names a status; otherwise the first badge that does decides.
func Classify(containerText string, badges []string) types.ServerStatus {
	if s := classifyText(containerText); s != types.StatusUnknown {
		return s
	}
	for _, b := range badges {
		if s := classifyText(b); s != types.StatusUnknown {
			return s
		}
	}
	return types.StatusUnknown
}

func classifyText(text string) types.ServerStatus {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "offline"):
		return types.StatusOffline
	case strings.Contains(t, "online"), strings.Contains(t, "running"):
		return types.StatusOnline
	default:
		return types.StatusUnknown
	}
}

// probeScript finds the deepest element whose text mentions host, taking
// the first branch in document order, and returns its container's text plus
// every status badge. Script and style text is ignored.
func probeScript(host string) string {
	return fmt.Sprintf(`(function(host, containers, badges) {
	const hidden = 'script, style, noscript, template';
	const text = (el) => {
		let s = '';
		const walker = document.createTreeWalker(el, NodeFilter.SHOW_TEXT, {
			acceptNode: (n) => n.parentElement && n.parentElement.closest(hidden) ? NodeFilter.FILTER_REJECT : NodeFilter.FILTER_ACCEPT,
		});
		while (walker.nextNode()) s += walker.currentNode.nodeValue;
		return s;
	};
	let target = null;
	let node = document.body || document.documentElement;
	while (node && text(node).includes(host)) {
		target = node;
		node = Array.from(target.children).find((c) => !c.matches(hidden) && text(c).includes(host)) || null;
	}
	const out = { serverFound: target !== null, containerText: '', badges: [] };
	if (target) {
		const box = target.closest(containers) || (target.parentElement && target.parentElement.closest('div')) || target;
		out.containerText = box.innerText || box.textContent || '';
	}
	document.querySelectorAll(badges).forEach((el) => out.badges.push(el.textContent || ''));
	return out;
})(%s, %s, %s)`, quote(host), quote(selectors.ServerContainer), quote(selectors.StatusBadges))
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
