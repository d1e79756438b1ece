package selectors

import (
	"strings"
	"testing"

	"github.com/mikeqd/falix-keepalive/internal/browser"
)

func TestNoJQueryContains(t *testing.T) {
	all := map[string]browser.Strategy{
		"EmailInput":    EmailInput,
		"PasswordInput": PasswordInput,
		"Submit":        Submit,
		"Start":         Start,
		"Modal":         Modal,
		"WatchAd":       WatchAd,
		"AdClose":       AdClose,
		"TriggerStart":  TriggerStart,
	}
	for name, s := range all {
		seen := make(map[string]bool)
		for _, loc := range s {
			if strings.Contains(loc.Query, ":contains(") {
				t.Errorf("%s: %s uses :contains, which querySelector rejects", name, loc)
			}
			if loc.Kind == browser.ByText && len(loc.Texts) == 0 {
				t.Errorf("%s: text locator %s has no texts", name, loc)
			}
			if seen[loc.String()] {
				t.Errorf("%s: duplicate locator name %s", name, loc)
			}
			seen[loc.String()] = true
		}
	}
}

func TestFallbacksComeLast(t *testing.T) {
	if last := Submit[len(Submit)-1]; last.Kind != browser.ByText {
		t.Errorf("Submit ends with %s, want the text scan", last)
	}
	if last := Start[len(Start)-1]; last.Kind != browser.ByText || last.Texts[0] != "start" {
		t.Errorf("Start ends with %s, want the plain start text scan", last)
	}
	if first := TriggerStart[0]; first.Kind != browser.ByCSS {
		t.Errorf("TriggerStart begins with %s, want the CSS selectors", first)
	}
}

func TestAdCloseListIsComplete(t *testing.T) {
	if len(AdClose) != 11 {
		t.Errorf("AdClose has %d entries, want 11", len(AdClose))
	}
	for _, loc := range AdClose {
		if loc.Visible {
			t.Errorf("%s requires visibility; frame sweeps click hidden controls too", loc)
		}
	}
}
