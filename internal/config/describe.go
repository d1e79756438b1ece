package config

import (
	"strconv"
	"strings"
)

// Setting is one resolved configuration value as shown by check-config.
type Setting struct {
	Key      string
	Value    string
	Required bool
	Secret   bool
}

// Missing reports whether a required setting has no value.
func (s Setting) Missing() bool {
	return s.Required && s.Value == ""
}

// Display returns the value fit for printing: secrets masked, empty shown
// as "(unset)".
func (s Setting) Display() string {
	switch {
	case s.Value == "":
		return "(unset)"
	case s.Secret:
		return Mask(s.Value)
	}
	return s.Value
}

// Mask hides all but the first two characters of a secret.
func Mask(v string) string {
	r := []rune(v)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return string(r[:2]) + strings.Repeat("*", len(r)-2)
}

// Settings lists the resolved settings for mode, mandatory keys first.
func (c *Config) Settings(mode Mode) []Setting {
	loop, single := mode == ModeLoop, mode == ModeSingleShot
	ms := func(d Duration) string { return strconv.FormatInt(d.Milliseconds(), 10) }

	return []Setting{
		{Key: "FALIX_EMAIL", Value: c.Account.Email, Required: loop},
		{Key: "FALIX_PASSWORD", Value: c.Account.Password, Required: loop, Secret: true},
		{Key: "TELEGRAM_BOT_TOKEN", Value: c.Telegram.BotToken, Required: single, Secret: true},
		{Key: "TELEGRAM_CHAT_ID", Value: c.Telegram.ChatID, Required: single},

		{Key: "FALIX_BASE_URL", Value: c.Dashboard.BaseURL},
		{Key: "FALIX_SERVER_HOST", Value: c.Dashboard.ServerHost},
		{Key: "FALIX_START_URL", Value: c.StartURL()},
		{Key: "CHECK_INTERVAL_MS", Value: ms(c.Timing.CheckInterval)},
		{Key: "AD_WATCH_MS", Value: ms(c.Timing.AdWatch)},
		{Key: "MAX_RUNTIME_MS", Value: ms(c.Timing.MaxRuntime)},
		{Key: "HEADLESS", Value: strconv.FormatBool(c.Browser.Headless)},
		{Key: "CHROME_PATH", Value: c.Browser.ExecPath},
		{Key: "TELEGRAM_API_URL", Value: c.Telegram.APIURL},
		{Key: "SMTP_HOST", Value: c.Email.SMTPHost},
		{Key: "SMTP_PORT", Value: strconv.Itoa(c.Email.SMTPPort)},
		{Key: "SMTP_USER", Value: c.Email.SMTPUser},
		{Key: "SMTP_PASS", Value: c.Email.SMTPPass, Secret: true},
		{Key: "SMTP_FROM", Value: c.Email.FromAddr},
		{Key: "SMTP_TO", Value: c.Email.ToAddr},
		{Key: "NOTIFY_LOOP", Value: strconv.FormatBool(c.Notify.Loop)},
		{Key: "KEEPALIVE_HISTORY_DB", Value: c.History.DBPath},
		{Key: "KEEPALIVE_SCREENSHOT_DIR", Value: c.Screenshots.Dir},
		{Key: "KEEPALIVE_SCREENSHOT_S3_BUCKET", Value: c.Screenshots.S3Bucket},
		{Key: "KEEPALIVE_SCREENSHOT_S3_SECRET_ACCESS_KEY", Value: c.Screenshots.S3SecretAccessKey, Secret: true},
		{Key: "KEEPALIVE_PUSHGATEWAY_URL", Value: c.Metrics.PushgatewayURL},
		{Key: "KEEPALIVE_SCHEDULE", Value: c.Schedule.Cron},
		{Key: "KEEPALIVE_SCHEDULE_TZ", Value: c.Schedule.Timezone},
		{Key: "LOG_LEVEL", Value: c.Log.Level},
	}
}
