// Package selectors holds every DOM locator used against the Falix dashboard
// and the start-trigger page. The markup is undocumented and changes without
// notice; when the bot breaks, this is the first file to update.
package selectors

import "github.com/mikeqd/falix-keepalive/internal/browser"

// Login form.
var (
	EmailInput = browser.Strategy{
		browser.CSS(`input[type="email"]`, true),
		browser.CSS(`input[name="email"]`, true),
		browser.CSS(`input[placeholder*="email" i]`, true),
	}

	PasswordInput = browser.Strategy{
		browser.CSS(`input[type="password"]`, true),
		browser.CSS(`input[name="password"]`, true),
		browser.CSS(`input[placeholder*="password" i]`, true),
	}

	Submit = browser.Strategy{
		browser.CSS(`button[type="submit"]`, false),
		browser.CSS(`input[type="submit"]`, false),
		browser.CSS(`.btn-primary`, false),
		browser.Text(`button, input[type="submit"]`, "login", "sign in").Named("any:login"),
	}
)

// Verification wall.
var (
	// VerificationFrameHints are substrings of challenge iframe addresses.
	VerificationFrameHints = []string{"turnstile", "hcaptcha", "cloudflare"}

	// VerificationMarkers are body texts shown while a challenge is pending.
	VerificationMarkers = []string{"verifying you are human", "please wait", "checking your browser"}

	SiteKey = browser.CSS(`[data-sitekey]`, false)
)

// Dashboard.
const (
	// LoginPath is the login route; still being on it after submit means failure.
	LoginPath = "/auth/login"

	ConsolePath = "/server/console"

	// ServerContainer finds the row or card holding a server entry.
	ServerContainer = "tr, .card, .server-item, .server-row, li"

	// StatusBadges are scanned when the server's own container is inconclusive.
	StatusBadges = `[class*="status"], [class*="state"], .badge`
)

// LoginErrorMarkers in the body mean the credentials were rejected.
var LoginErrorMarkers = []string{"invalid", "incorrect"}

// Server console.
var (
	Start = browser.Strategy{
		browser.CSS(`button[start]`, true),
		browser.CSS(`.btn-start`, true),
		browser.CSS(`#start`, true),
		browser.CSS(`[data-action="start"]`, true),
		browser.Text("button", "start server").Named("button:start-server"),
		browser.Text("button", "start").Named("button:start"),
	}

	Modal = browser.Strategy{
		browser.CSS(`.modal, .popup, .overlay, [class*="modal"], [class*="popup"]`, false),
	}

	WatchAd = browser.Strategy{
		browser.Text("button", "watch ad").Named("button:watch-ad"),
		browser.Text("button", "watch").Named("button:watch"),
		browser.Text("button", "continue").Named("button:continue"),
		browser.CSS(`.btn-watch`, true),
		browser.CSS(`[data-action="watch-ad"]`, true),
	}

	// StartedMarkers in the console body mean the server is up.
	StartedMarkers = []string{"running", "started", "online", "server is running"}
)

// AdClose lists known close and skip controls of ads and overlays.
var AdClose = browser.Strategy{
	browser.CSS(`button[aria-label="Close"]`, false),
	browser.CSS(`[aria-label*="close" i]`, false),
	browser.CSS(`.close, .close-btn, .close-button, .btn-close, .modal-close`, false),
	browser.CSS(`#dismiss-button`, false),
	browser.CSS(`.ytp-ad-skip-button, .ytp-ad-skip-button-modern`, false),
	browser.CSS(`.ad-close, .ad_close, .ads-close`, false),
	browser.CSS(`.overlay-close, .popup-close`, false),
	browser.CSS(`#ad_close, #ad-close`, false),
	browser.CSS(`[class*="ad"] [class*="close"]`, false),
	browser.CSS(`.modal button:not([disabled])`, false),
	browser.CSS(`.popup button:not([disabled])`, false),
}

// Start-trigger page used by the single-shot run.
var (
	TriggerStart = browser.Strategy{
		browser.CSS(`button#start, button.start, .btn-start, [data-testid="start"]`, true),
		browser.XPath("xpath:start-server", `//button[contains(., 'Start Server') or contains(@aria-label, 'Start Server')] | //a[contains(., 'Start Server')]`),
		browser.XPath("xpath:start", `//button[contains(., 'Start') or contains(@aria-label, 'Start')] | //a[contains(., 'Start')]`),
	}

	// TriggerSuccessMarkers cover the English and Chinese locales of the page.
	TriggerSuccessMarkers = []string{"running", "started", "online", "已启动", "在线"}
)
