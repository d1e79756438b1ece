package browser

import (
	"strings"
	"testing"

	"github.com/chromedp/chromedp"
)

func TestLocateExprEmbedsLocator(t *testing.T) {
	loc := Text("button, input[type=submit]", "login", "sign in")
	expr, err := locateExpr("document", loc, 0, "k7")
	if err != nil {
		t.Fatalf("locateExpr: %v", err)
	}
	for _, want := range []string{
		`"kind":"text"`,
		`"tags":"button, input[type=submit]"`,
		`"texts":["login","sign in"]`,
		`"visible":true`,
		`(document, {`,
		`, 0, "k7")`,
	} {
		if !strings.Contains(expr, want) {
			t.Errorf("expression missing %s", want)
		}
	}
	if strings.Contains(expr, `"Name"`) {
		t.Error("display name leaked into the page script")
	}
}

func TestFrameRoot(t *testing.T) {
	got := frameRoot([]int{2, 0})
	if !strings.Contains(got, "for (const i of [2,0])") {
		t.Errorf("frameRoot = %s", got)
	}
}

func TestMarkSelector(t *testing.T) {
	if got, want := markSelector("k3"), `[data-keepalive-target="k3"]`; got != want {
		t.Errorf("markSelector = %s, want %s", got, want)
	}
	if got := clickExpr("document", markSelector("k3")); !strings.Contains(got, `"[data-keepalive-target=\"k3\"]"`) {
		t.Errorf("clickExpr did not quote the selector: %s", got)
	}
}

func TestOptions(t *testing.T) {
	base := len(Options(false, ""))
	if got := len(Options(true, "")); got != base+1 {
		t.Errorf("headless adds %d options, want 1", got-base)
	}
	if got := len(Options(false, "/usr/bin/chromium")); got != base+1 {
		t.Errorf("exec path adds %d options, want 1", got-base)
	}
	if got := len(Options(false, "")); got <= len(chromedp.DefaultExecAllocatorOptions) {
		t.Errorf("Options added nothing to the chromedp defaults")
	}
}
