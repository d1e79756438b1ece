package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mikeqd/falix-keepalive/internal/clock"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

// PollInterval is how often WaitFirst and WaitText re-check the page.
const PollInterval = 250 * time.Millisecond

// FindFirst returns the first locator of s with at least one match in doc.
// A locator that errors (bad selector, detached frame) counts as no match.
func FindFirst(ctx context.Context, doc Document, s Strategy) (Locator, bool) {
	for _, loc := range s {
		if ctx.Err() != nil {
			return Locator{}, false
		}
		n, err := doc.Count(ctx, loc)
		if err == nil && n > 0 {
			return loc, true
		}
	}
	return Locator{}, false
}

// ClickFirst clicks the first element found by s and reports which locator
// was used.
func ClickFirst(ctx context.Context, doc Document, s Strategy) (Locator, error) {
	for _, loc := range s {
		if ctx.Err() != nil {
			return Locator{}, ctx.Err()
		}
		n, err := doc.Count(ctx, loc)
		if err != nil || n == 0 {
			continue
		}
		if err := doc.ClickNth(ctx, loc, 0); err != nil {
			continue
		}
		return loc, nil
	}
	return Locator{}, fmt.Errorf("%w: none of %d locators matched", types.ErrElementNotFound, len(s))
}

// WaitFirst polls FindFirst until a locator resolves or timeout elapses.
func WaitFirst(ctx context.Context, clk clock.Clock, doc Document, s Strategy, timeout time.Duration) (Locator, error) {
	deadline := clk.Now().Add(timeout)
	for {
		if loc, ok := FindFirst(ctx, doc, s); ok {
			return loc, nil
		}
		if !clk.Now().Before(deadline) {
			return Locator{}, fmt.Errorf("%w: none of %v within %v", types.ErrElementNotFound, s.names(), timeout)
		}
		if err := clk.Sleep(ctx, PollInterval); err != nil {
			return Locator{}, err
		}
	}
}

// ContainsAny reports whether text contains any of markers, case-insensitively.
// It returns the marker that matched.
func ContainsAny(text string, markers ...string) (string, bool) {
	lower := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return m, true
		}
	}
	return "", false
}

// WaitText polls the body text until it contains one of markers or timeout
// elapses. Transient read errors are retried.
func WaitText(ctx context.Context, clk clock.Clock, p Page, markers []string, timeout time.Duration) (string, bool) {
	deadline := clk.Now().Add(timeout)
	for {
		if text, err := p.BodyText(ctx); err == nil {
			if m, ok := ContainsAny(text, markers...); ok {
				return m, true
			}
		}
		if !clk.Now().Before(deadline) {
			return "", false
		}
		if err := clk.Sleep(ctx, time.Second); err != nil {
			return "", false
		}
	}
}

func (s Strategy) names() []string {
	out := make([]string, len(s))
	for i, l := range s {
		out[i] = l.String()
	}
	return out
}
