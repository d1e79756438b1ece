package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/mikeqd/falix-keepalive/internal/types"
)

// Mode selects which mandatory keys Validate enforces.
type Mode int

const (
	ModeLoop Mode = iota
	ModeSingleShot
)

func (m Mode) String() string {
	if m == ModeSingleShot {
		return "single-shot"
	}
	return "loop"
}

// Config holds all application configuration
type Config struct {
	Account     AccountConfig    `toml:"account"`
	Dashboard   DashboardConfig  `toml:"dashboard"`
	Timing      TimingConfig     `toml:"timing"`
	Browser     BrowserConfig    `toml:"browser"`
	Retry       RetryConfig      `toml:"retry"`
	Telegram    TelegramConfig   `toml:"telegram"`
	Email       EmailConfig      `toml:"email"`
	Notify      NotifyConfig     `toml:"notify"`
	History     HistoryConfig    `toml:"history"`
	Screenshots ScreenshotConfig `toml:"screenshots"`
	Metrics     MetricsConfig    `toml:"metrics"`
	Schedule    ScheduleConfig   `toml:"schedule"`
	Log         LogConfig        `toml:"log"`
}

type AccountConfig struct {
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

type DashboardConfig struct {
	BaseURL    string `toml:"base_url"`
	ServerHost string `toml:"server_host"`
	// StartURL is the single-shot trigger address. Empty derives it from ServerHost.
	StartURL string `toml:"start_url"`
}

type TimingConfig struct {
	CheckInterval Duration `toml:"check_interval"`
	AdWatch       Duration `toml:"ad_watch"`
	MaxRuntime    Duration `toml:"max_runtime"`

	NavigationTimeout Duration `toml:"navigation_timeout"`
	ActionTimeout     Duration `toml:"action_timeout"`

	// Single-shot runs use longer page timeouts.
	SingleShotTimeout Duration `toml:"single_shot_timeout"`
	SuccessWait       Duration `toml:"success_wait"`
}

type BrowserConfig struct {
	Headless bool   `toml:"headless"`
	ExecPath string `toml:"exec_path"`
}

type RetryConfig struct {
	Login RetryPolicy `toml:"login"`
	Start RetryPolicy `toml:"start"`
}

type RetryPolicy struct {
	Retries   int      `toml:"retries"`
	Factor    float64  `toml:"factor"`
	BaseDelay Duration `toml:"base_delay"`
}

// Policy converts to the runtime retry policy.
func (p RetryPolicy) Policy() types.RetryPolicy {
	return types.RetryPolicy{Retries: p.Retries, Factor: p.Factor, BaseDelay: p.BaseDelay.Duration}
}

type TelegramConfig struct {
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
	APIURL   string `toml:"api_url"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

type EmailConfig struct {
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	FromAddr string `toml:"from_address"`
	ToAddr   string `toml:"to_address"`
}

// Enabled reports whether enough is set to send mail.
func (e EmailConfig) Enabled() bool {
	return e.SMTPHost != "" && e.FromAddr != "" && e.ToAddr != ""
}

type NotifyConfig struct {
	// Loop also notifies loop cycles that took action or failed.
	Loop bool `toml:"loop"`
}

type HistoryConfig struct {
	DBPath string `toml:"db_path"`
}

type ScreenshotConfig struct {
	Dir string `toml:"dir"`

	S3Bucket   string `toml:"s3_bucket"`
	S3Region   string `toml:"s3_region"`
	S3Endpoint string `toml:"s3_endpoint"`
	S3Prefix   string `toml:"s3_prefix"`

	// Static keys; empty uses the default AWS credential chain.
	S3AccessKeyID     string `toml:"s3_access_key_id"`
	S3SecretAccessKey string `toml:"s3_secret_access_key"`
	S3PathStyle       bool   `toml:"s3_path_style"`
}

type MetricsConfig struct {
	PushgatewayURL string `toml:"pushgateway_url"`
}

type ScheduleConfig struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

const (
	DefaultBaseURL    = "https://client.falixnodes.net"
	DefaultServerHost = "mikeqd.falixsrv.me"
	startTriggerURL   = "https://falixnodes.net/startserver"
)

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Dashboard: DashboardConfig{
			BaseURL:    DefaultBaseURL,
			ServerHost: DefaultServerHost,
		},
		Timing: TimingConfig{
			CheckInterval:     Duration{2 * time.Minute},
			AdWatch:           Duration{35 * time.Second},
			MaxRuntime:        Duration{10 * time.Minute},
			NavigationTimeout: Duration{30 * time.Second},
			ActionTimeout:     Duration{10 * time.Second},
			SingleShotTimeout: Duration{120 * time.Second},
			SuccessWait:       Duration{60 * time.Second},
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		Retry: RetryConfig{
			Login: RetryPolicy{Retries: 2, Factor: 2, BaseDelay: Duration{time.Second}},
			Start: RetryPolicy{Retries: 1, Factor: 2, BaseDelay: Duration{time.Second}},
		},
		Telegram: TelegramConfig{
			APIURL: "https://api.telegram.org",
		},
		Email: EmailConfig{
			SMTPPort: 587,
		},
		Schedule: ScheduleConfig{
			Cron:     "*/10 * * * *",
			Timezone: "UTC",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Credentials returns the account credentials.
func (c *Config) Credentials() types.Credentials {
	return types.Credentials{Email: c.Account.Email, Password: c.Account.Password}
}

// Budget returns the loop's run budget.
func (c *Config) Budget() types.RunBudget {
	return types.RunBudget{MaxRuntime: c.Timing.MaxRuntime.Duration, Interval: c.Timing.CheckInterval.Duration}
}

// StartURL returns the single-shot trigger address.
func (c *Config) StartURL() string {
	if c.Dashboard.StartURL != "" {
		return c.Dashboard.StartURL
	}
	return startTriggerURL + "?ip=" + url.QueryEscape(c.Dashboard.ServerHost)
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "falix-keepalive"), nil
}

// ConfigPath returns the config file in use: KEEPALIVE_CONFIG if set,
// otherwise the default location under ConfigDir.
func ConfigPath() (string, error) {
	if p := os.Getenv("KEEPALIVE_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load builds the configuration from defaults, an optional TOML file, a .env
// file and the process environment, in increasing order of precedence.
func Load() (*Config, error) {
	// Missing .env is the normal case in CI.
	_ = godotenv.Load()

	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if err := cfg.decodeFile(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: read %s: %w", types.ErrConfig, path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrConfig, err)
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	_, err := toml.DecodeFile(path, c)
	return err
}

// Validate checks the keys mode needs. It is called once at process start.
func (c *Config) Validate(mode Mode) error {
	var missing []string
	switch mode {
	case ModeLoop:
		if c.Account.Email == "" {
			missing = append(missing, "FALIX_EMAIL")
		}
		if c.Account.Password == "" {
			missing = append(missing, "FALIX_PASSWORD")
		}
	case ModeSingleShot:
		if c.Telegram.BotToken == "" {
			missing = append(missing, "TELEGRAM_BOT_TOKEN")
		}
		if c.Telegram.ChatID == "" {
			missing = append(missing, "TELEGRAM_CHAT_ID")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required environment variables: %s", types.ErrConfig, strings.Join(missing, ", "))
	}

	var errs []error
	if u, err := url.Parse(c.Dashboard.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("FALIX_BASE_URL %q is not an absolute URL", c.Dashboard.BaseURL))
	}
	if c.Dashboard.ServerHost == "" {
		errs = append(errs, errors.New("FALIX_SERVER_HOST is empty"))
	}
	if c.Timing.CheckInterval.Duration <= 0 {
		errs = append(errs, errors.New("CHECK_INTERVAL_MS must be positive"))
	}
	if c.Timing.MaxRuntime.Duration <= 0 {
		errs = append(errs, errors.New("MAX_RUNTIME_MS must be positive"))
	}
	if c.Timing.AdWatch.Duration < 0 {
		errs = append(errs, errors.New("AD_WATCH_MS must not be negative"))
	}
	for name, p := range map[string]RetryPolicy{"login": c.Retry.Login, "start": c.Retry.Start} {
		if p.Retries < 0 || p.Factor < 1 || p.BaseDelay.Duration < 0 {
			errs = append(errs, fmt.Errorf("retry policy %s is invalid", name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", types.ErrConfig, err)
	}
	return nil
}

// Save writes config to path as TOML
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
