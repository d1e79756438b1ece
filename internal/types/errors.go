package types

import "errors"

// Error kinds. Operations wrap these with context; test with errors.Is.
var (
	// ErrConfig means mandatory configuration is missing or malformed.
	ErrConfig = errors.New("configuration error")

	// ErrAuth means the login heuristic did not end on an authenticated page.
	ErrAuth = errors.New("authentication failed")

	// ErrElementNotFound means no locator of a strategy resolved.
	ErrElementNotFound = errors.New("element not found")

	// ErrVerificationTimeout means a bot-verification wall did not clear in time.
	// Callers log it and continue.
	ErrVerificationTimeout = errors.New("verification wall timeout")

	// ErrStart means no success marker appeared after the start workflow.
	ErrStart = errors.New("server start not confirmed")

	// ErrNotify means a notification could not be delivered. Never escalated.
	ErrNotify = errors.New("notification failed")
)
