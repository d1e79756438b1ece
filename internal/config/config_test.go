package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mikeqd/falix-keepalive/internal/types"
)

func mapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Timing.CheckInterval.Duration != 2*time.Minute {
		t.Errorf("CheckInterval = %v, want 2m", cfg.Timing.CheckInterval)
	}
	if cfg.Timing.AdWatch.Duration != 35*time.Second {
		t.Errorf("AdWatch = %v, want 35s", cfg.Timing.AdWatch)
	}
	if cfg.Timing.MaxRuntime.Duration != 10*time.Minute {
		t.Errorf("MaxRuntime = %v, want 10m", cfg.Timing.MaxRuntime)
	}
	if !cfg.Browser.Headless {
		t.Error("Headless should default to true")
	}
	if cfg.Retry.Login.Retries != 2 || cfg.Retry.Start.Retries != 1 {
		t.Errorf("retries = %d/%d, want 2/1", cfg.Retry.Login.Retries, cfg.Retry.Start.Retries)
	}
	if got, want := cfg.StartURL(), "https://falixnodes.net/startserver?ip=mikeqd.falixsrv.me"; got != want {
		t.Errorf("StartURL() = %q, want %q", got, want)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(mapLookup(map[string]string{
		"FALIX_EMAIL":        "me@example.com",
		"FALIX_PASSWORD":     "hunter2",
		"FALIX_SERVER_HOST":  "other.falixsrv.me",
		"CHECK_INTERVAL_MS":  "60000",
		"AD_WATCH_MS":        "1000",
		"HEADLESS":           "false",
		"TELEGRAM_BOT_TOKEN": "tok",
		"TELEGRAM_CHAT_ID":   "42",
		"SMTP_PORT":          "2525",
		"FALIX_BASE_URL":     "",
	}))
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}

	if cfg.Account.Email != "me@example.com" || cfg.Account.Password != "hunter2" {
		t.Errorf("credentials not applied: %+v", cfg.Account)
	}
	if cfg.Timing.CheckInterval.Duration != time.Minute {
		t.Errorf("CheckInterval = %v, want 1m", cfg.Timing.CheckInterval)
	}
	if cfg.Timing.AdWatch.Duration != time.Second {
		t.Errorf("AdWatch = %v, want 1s", cfg.Timing.AdWatch)
	}
	if cfg.Browser.Headless {
		t.Error("HEADLESS=false not applied")
	}
	if cfg.Email.SMTPPort != 2525 {
		t.Errorf("SMTPPort = %d, want 2525", cfg.Email.SMTPPort)
	}
	// Empty values keep the default.
	if cfg.Dashboard.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want default", cfg.Dashboard.BaseURL)
	}
	if !strings.HasSuffix(cfg.StartURL(), "ip=other.falixsrv.me") {
		t.Errorf("StartURL() = %q does not follow server host", cfg.StartURL())
	}
}

func TestApplyEnvReportsEveryBadValue(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(mapLookup(map[string]string{
		"CHECK_INTERVAL_MS": "two minutes",
		"HEADLESS":          "maybe",
	}))
	if err == nil {
		t.Fatal("expected error for malformed values")
	}
	for _, key := range []string{"CHECK_INTERVAL_MS", "HEADLESS"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}

func TestValidate(t *testing.T) {
	t.Run("LoopRequiresCredentials", func(t *testing.T) {
		err := Default().Validate(ModeLoop)
		if !errors.Is(err, types.ErrConfig) {
			t.Fatalf("Validate() = %v, want ErrConfig", err)
		}
		if !strings.Contains(err.Error(), "FALIX_EMAIL") || !strings.Contains(err.Error(), "FALIX_PASSWORD") {
			t.Errorf("error %q should list both missing keys", err)
		}
	})

	t.Run("SingleShotRequiresTelegram", func(t *testing.T) {
		cfg := Default()
		cfg.Account = AccountConfig{Email: "a@b.c", Password: "x"}
		err := cfg.Validate(ModeSingleShot)
		if !errors.Is(err, types.ErrConfig) {
			t.Fatalf("Validate() = %v, want ErrConfig", err)
		}
		if !strings.Contains(err.Error(), "TELEGRAM_BOT_TOKEN") {
			t.Errorf("error %q should mention TELEGRAM_BOT_TOKEN", err)
		}
	})

	t.Run("SingleShotDoesNotNeedCredentials", func(t *testing.T) {
		cfg := Default()
		cfg.Telegram.BotToken = "tok"
		cfg.Telegram.ChatID = "1"
		if err := cfg.Validate(ModeSingleShot); err != nil {
			t.Fatalf("Validate() = %v", err)
		}
	})

	t.Run("RejectsNonPositiveInterval", func(t *testing.T) {
		cfg := Default()
		cfg.Account = AccountConfig{Email: "a@b.c", Password: "x"}
		cfg.Timing.CheckInterval = Duration{}
		if err := cfg.Validate(ModeLoop); !errors.Is(err, types.ErrConfig) {
			t.Fatalf("Validate() = %v, want ErrConfig", err)
		}
	})

	t.Run("RejectsRelativeBaseURL", func(t *testing.T) {
		cfg := Default()
		cfg.Account = AccountConfig{Email: "a@b.c", Password: "x"}
		cfg.Dashboard.BaseURL = "client.falixnodes.net"
		if err := cfg.Validate(ModeLoop); !errors.Is(err, types.ErrConfig) {
			t.Fatalf("Validate() = %v, want ErrConfig", err)
		}
	})
}

func TestSaveAndDecodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Dashboard.ServerHost = "saved.falixsrv.me"
	cfg.Timing.AdWatch = Duration{40 * time.Second}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config perms = %v, want 0600", info.Mode().Perm())
	}

	loaded := Default()
	if err := loaded.decodeFile(path); err != nil {
		t.Fatalf("decodeFile: %v", err)
	}
	if loaded.Dashboard.ServerHost != "saved.falixsrv.me" {
		t.Errorf("ServerHost = %q", loaded.Dashboard.ServerHost)
	}
	if loaded.Timing.AdWatch.Duration != 40*time.Second {
		t.Errorf("AdWatch = %v, want 40s", loaded.Timing.AdWatch)
	}
}

func TestLoadPrefersEnvOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := "[dashboard]\nserver_host = \"file.falixsrv.me\"\nbase_url = \"https://file.example\"\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("KEEPALIVE_CONFIG", path)
	t.Setenv("FALIX_SERVER_HOST", "env.falixsrv.me")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dashboard.ServerHost != "env.falixsrv.me" {
		t.Errorf("ServerHost = %q, want env value", cfg.Dashboard.ServerHost)
	}
	if cfg.Dashboard.BaseURL != "https://file.example" {
		t.Errorf("BaseURL = %q, want file value", cfg.Dashboard.BaseURL)
	}
}
