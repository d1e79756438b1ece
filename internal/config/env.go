package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Duration is a time.Duration that reads and writes TOML as "2m0s".
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// envReader accumulates parse errors so every bad key is reported at once.
type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (r *envReader) get(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *envReader) str(dst *string, key string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *envReader) millis(dst *Duration, key string) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s=%q is not an integer number of milliseconds", key, v))
		return
	}
	dst.Duration = time.Duration(ms) * time.Millisecond
}

func (r *envReader) boolean(dst *bool, key string) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s=%q is not a boolean", key, v))
		return
	}
	*dst = b
}

func (r *envReader) integer(dst *int, key string) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s=%q is not an integer", key, v))
		return
	}
	*dst = n
}

// applyEnv overlays environment variables onto c.
func (c *Config) applyEnv(lookup LookupFunc) error {
	r := &envReader{lookup: lookup}

	r.str(&c.Account.Email, "FALIX_EMAIL")
	r.str(&c.Account.Password, "FALIX_PASSWORD")
	r.str(&c.Dashboard.BaseURL, "FALIX_BASE_URL")
	r.str(&c.Dashboard.ServerHost, "FALIX_SERVER_HOST")
	r.str(&c.Dashboard.StartURL, "FALIX_START_URL")

	r.millis(&c.Timing.CheckInterval, "CHECK_INTERVAL_MS")
	r.millis(&c.Timing.AdWatch, "AD_WATCH_MS")
	r.millis(&c.Timing.MaxRuntime, "MAX_RUNTIME_MS")

	r.boolean(&c.Browser.Headless, "HEADLESS")
	r.str(&c.Browser.ExecPath, "CHROME_PATH")

	r.str(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	r.str(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	r.str(&c.Telegram.APIURL, "TELEGRAM_API_URL")

	r.str(&c.Email.SMTPHost, "SMTP_HOST")
	r.integer(&c.Email.SMTPPort, "SMTP_PORT")
	r.str(&c.Email.SMTPUser, "SMTP_USER")
	r.str(&c.Email.SMTPPass, "SMTP_PASS")
	r.str(&c.Email.FromAddr, "SMTP_FROM")
	r.str(&c.Email.ToAddr, "SMTP_TO")
	r.boolean(&c.Notify.Loop, "NOTIFY_LOOP")

	r.str(&c.History.DBPath, "KEEPALIVE_HISTORY_DB")
	r.str(&c.Screenshots.Dir, "KEEPALIVE_SCREENSHOT_DIR")
	r.str(&c.Screenshots.S3Bucket, "KEEPALIVE_SCREENSHOT_S3_BUCKET")
	r.str(&c.Screenshots.S3Region, "KEEPALIVE_SCREENSHOT_S3_REGION")
	r.str(&c.Screenshots.S3Endpoint, "KEEPALIVE_SCREENSHOT_S3_ENDPOINT")
	r.str(&c.Screenshots.S3Prefix, "KEEPALIVE_SCREENSHOT_S3_PREFIX")
	r.str(&c.Screenshots.S3AccessKeyID, "KEEPALIVE_SCREENSHOT_S3_ACCESS_KEY_ID")
	r.str(&c.Screenshots.S3SecretAccessKey, "KEEPALIVE_SCREENSHOT_S3_SECRET_ACCESS_KEY")
	r.boolean(&c.Screenshots.S3PathStyle, "KEEPALIVE_SCREENSHOT_S3_PATH_STYLE")
	r.str(&c.Metrics.PushgatewayURL, "KEEPALIVE_PUSHGATEWAY_URL")
	r.str(&c.Schedule.Cron, "KEEPALIVE_SCHEDULE")
	r.str(&c.Schedule.Timezone, "KEEPALIVE_SCHEDULE_TZ")
	r.str(&c.Log.Level, "LOG_LEVEL")

	return errors.Join(r.errs...)
}
