package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mikeqd/falix-keepalive/internal/browser"
	"github.com/mikeqd/falix-keepalive/internal/selectors"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

const (
	verificationSettle = 3 * time.Second
	verificationPolls  = 60
	verificationPoll   = time.Second
)

// WaitVerification waits out a bot-verification wall, if one is showing.
// It returns nil when there is no wall or it clears, and
// ErrVerificationTimeout when it is still up after the polling budget.
// Other failures are logged and treated as "no wall".
func (m *Manager) WaitVerification(ctx context.Context, p browser.Page) error {
	m.log.Debug("Checking for verification wall")
	if err := m.clk.Sleep(ctx, verificationSettle); err != nil {
		return err
	}

	urls, err := p.FrameURLs(ctx)
	if err != nil {
		m.log.Warn("Could not inspect frames for verification", "error", err)
		return nil
	}
	if !hasVerificationFrame(urls) {
		m.log.Debug("No verification wall detected")
		return nil
	}

	m.log.Info("Verification frame found, waiting for completion")
	for i := 0; i < verificationPolls; i++ {
		if !m.blocked(ctx, p) {
			m.log.Info("Verification completed")
			return nil
		}
		if err := m.clk.Sleep(ctx, verificationPoll); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: still blocked after %d checks", types.ErrVerificationTimeout, verificationPolls)
}

func hasVerificationFrame(urls []string) bool {
	for _, u := range urls {
		for _, hint := range selectors.VerificationFrameHints {
			if strings.Contains(strings.ToLower(u), hint) {
				return true
			}
		}
	}
	return false
}

// blocked reports whether the wall is still up. Read errors count as blocked.
func (m *Manager) blocked(ctx context.Context, p browser.Page) bool {
	body, err := p.BodyText(ctx)
	if err != nil {
		return true
	}
	if _, ok := browser.ContainsAny(body, selectors.VerificationMarkers...); ok {
		return true
	}
	n, err := p.Count(ctx, selectors.SiteKey)
	return err != nil || n > 0
}
