// Package auth signs the bot into the Falix dashboard.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mikeqd/falix-keepalive/internal/browser"
	"github.com/mikeqd/falix-keepalive/internal/clock"
	"github.com/mikeqd/falix-keepalive/internal/selectors"
	"github.com/mikeqd/falix-keepalive/internal/types"
)

const (
	emailWait      = 10 * time.Second
	passwordWait   = 5 * time.Second
	navigationWait = 30 * time.Second
)

// Manager handles Falix authentication
type Manager struct {
	baseURL string
	creds   types.Credentials
	clk     clock.Clock
	log     *slog.Logger
}

// NewManager creates a new auth manager
func NewManager(baseURL string, creds types.Credentials, clk clock.Clock, log *slog.Logger) *Manager {
	if clk == nil {
		clk = clock.Real{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		clk:     clk,
		log:     log,
	}
}

// Login fills and submits the login form on p. It fails with ErrAuth when the
// page still shows the login route or a credentials error afterwards.
func (m *Manager) Login(ctx context.Context, p browser.Page) error {
	m.log.Info("Attempting to login", "email", m.creds.Email)

	loginURL := m.baseURL + selectors.LoginPath
	if err := p.Navigate(ctx, loginURL); err != nil {
		return fmt.Errorf("%w: open login page: %w", types.ErrAuth, err)
	}

	if err := m.WaitVerification(ctx, p); err != nil {
		if !errors.Is(err, types.ErrVerificationTimeout) {
			return err
		}
		m.log.Warn("Verification wall still showing, proceeding anyway")
	}

	email, err := browser.WaitFirst(ctx, m.clk, p, selectors.EmailInput, emailWait)
	if err != nil {
		return fmt.Errorf("email input: %w", err)
	}
	if err := p.Type(ctx, email, m.creds.Email); err != nil {
		return fmt.Errorf("%w: type email: %w", types.ErrAuth, err)
	}

	password, err := browser.WaitFirst(ctx, m.clk, p, selectors.PasswordInput, passwordWait)
	if err != nil {
		return fmt.Errorf("password input: %w", err)
	}
	if err := p.Type(ctx, password, m.creds.Password); err != nil {
		return fmt.Errorf("%w: type password: %w", types.ErrAuth, err)
	}

	// Arm before clicking so a fast redirect is not missed.
	waitNav, release := p.ExpectNavigation(ctx)
	defer release()
	submit, err := browser.ClickFirst(ctx, p, selectors.Submit)
	if err != nil {
		return fmt.Errorf("%w: submit control: %w", types.ErrAuth, err)
	}
	m.log.Debug("Submitted login form", "locator", submit.String())

	if err := waitNav(ctx, navigationWait); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.log.Debug("No navigation after submit", "error", err)
	}

	if err := m.checkLoggedIn(ctx, p); err != nil {
		return err
	}
	m.log.Info("Login successful")
	return nil
}

func (m *Manager) checkLoggedIn(ctx context.Context, p browser.Page) error {
	loc, err := p.Location(ctx)
	if err != nil {
		return fmt.Errorf("%w: read location: %w", types.ErrAuth, err)
	}
	if strings.Contains(loc, selectors.LoginPath) {
		return fmt.Errorf("%w: login page still showing", types.ErrAuth)
	}
	body, err := p.BodyText(ctx)
	if err != nil {
		return fmt.Errorf("%w: read page: %w", types.ErrAuth, err)
	}
	if marker, ok := browser.ContainsAny(body, selectors.LoginErrorMarkers...); ok {
		return fmt.Errorf("%w: page reports %q credentials", types.ErrAuth, marker)
	}
	return nil
}
