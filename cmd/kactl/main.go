// Command kactl is a maintenance CLI for falix-keepalive setup and debugging.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/pkg/browser"

	browseropts "github.com/mikeqd/falix-keepalive/internal/browser"
	"github.com/mikeqd/falix-keepalive/internal/config"
	"github.com/mikeqd/falix-keepalive/internal/report"
	"github.com/mikeqd/falix-keepalive/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "check-config":
		mode := config.ModeLoop
		if len(os.Args) > 2 && os.Args[2] == "single-shot" {
			mode = config.ModeSingleShot
		}
		os.Exit(runCheckConfig(mode))
	case "init-config":
		path := ""
		if len(os.Args) > 2 {
			path = os.Args[2]
		}
		runInitConfig(path)
	case "bot-test":
		runBotTest()
	case "history":
		limit := 20
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil || n <= 0 {
				fmt.Println("Usage: kactl history [n]")
				os.Exit(1)
			}
			limit = n
		}
		runHistory(limit)
	case "report":
		runReport()
	case "open":
		if len(os.Args) < 3 {
			fmt.Println("Usage: kactl open <config|screenshots>")
			os.Exit(1)
		}
		runOpen(os.Args[2])
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: kactl <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  check-config [single-shot]  Show resolved settings and missing keys")
	fmt.Println("  init-config [path]          Write a default config file")
	fmt.Println("  bot-test                    Open bot.sannysoft.com to audit browser fingerprint")
	fmt.Println("  history [n]                 Show the last n recorded checks")
	fmt.Println("  report                      Render recent checks as HTML and open it")
	fmt.Println("  open config                 Open config file in default editor")
	fmt.Println("  open screenshots            Open screenshot directory in file explorer")
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func runCheckConfig(mode config.Mode) int {
	fmt.Printf("Checking falix-keepalive setup (%s mode)...\n\n", mode)

	cfg := loadConfig()
	if path, err := config.ConfigPath(); err == nil {
		if _, err := os.Stat(path); err == nil {
			fmt.Printf("Config file: %s\n\n", path)
		} else {
			fmt.Printf("Config file: %s (not present, using environment only)\n\n", path)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	missing := 0
	for _, s := range cfg.Settings(mode) {
		mark := "ok"
		if s.Missing() {
			mark = "MISSING"
			missing++
		} else if s.Required {
			mark = "required"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n", mark, s.Key, s.Display())
	}
	w.Flush()

	fmt.Println()
	if missing > 0 {
		fmt.Printf("%d required setting(s) missing. In CI, set them as repository secrets.\n", missing)
		return 1
	}
	if err := cfg.Validate(mode); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		return 1
	}
	fmt.Println("All required settings are present.")
	return 0
}

func runInitConfig(path string) {
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			log.Fatalf("Failed to get path: %v", err)
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil {
		log.Fatalf("Refusing to overwrite existing %s", path)
	}
	if err := config.Default().Save(path); err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
	fmt.Printf("Wrote default config to %s\n", path)
}

func runBotTest() {
	log.Println("Opening bot.sannysoft.com with stealth browser options...")

	cfg := loadConfig()
	opts := browseropts.Options(false, cfg.Browser.ExecPath) // non-headless so you can see it

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	err := chromedp.Run(ctx,
		chromedp.Navigate("https://bot.sannysoft.com"),
		chromedp.WaitVisible("body", chromedp.ByQuery),
	)
	if err != nil {
		log.Fatalf("Failed to navigate: %v", err)
	}

	fmt.Println("Press Enter to close the browser...")
	fmt.Scanln()

	log.Println("Done.")
}

func runHistory(limit int) {
	cfg := loadConfig()
	if cfg.History.DBPath == "" {
		log.Fatal("History is disabled; set KEEPALIVE_HISTORY_DB")
	}

	st, err := store.New(cfg.History.DBPath)
	if err != nil {
		log.Fatalf("Failed to open history: %v", err)
	}
	defer st.Close()

	cycles, err := st.RecentCycles(context.Background(), limit)
	if err != nil {
		log.Fatalf("Failed to read history: %v", err)
	}
	if len(cycles) == 0 {
		fmt.Println("No checks recorded yet.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tRUN\tCHECK\tSTATUS\tOUTCOME\tDURATION\tREASON")
	for _, c := range cycles {
		fmt.Fprintf(w, "%s\t%.8s\t%d\t%s\t%s\t%s\t%s\n",
			c.StartedAt.Local().Format(time.DateTime), c.RunID, c.Seq, c.Status, c.Outcome,
			c.Duration.Round(time.Second), c.Reason)
	}
	w.Flush()
}

func runReport() {
	cfg := loadConfig()
	if cfg.History.DBPath == "" {
		log.Fatal("History is disabled; set KEEPALIVE_HISTORY_DB")
	}

	st, err := store.New(cfg.History.DBPath)
	if err != nil {
		log.Fatalf("Failed to open history: %v", err)
	}
	defer st.Close()

	cycles, err := st.RecentCycles(context.Background(), 200)
	if err != nil {
		log.Fatalf("Failed to read history: %v", err)
	}

	builder, err := report.New(cfg.Dashboard.ServerHost)
	if err != nil {
		log.Fatalf("Failed to create report: %v", err)
	}
	r, err := builder.Build(cycles, time.Now())
	if err != nil {
		log.Fatalf("Failed to build report: %v", err)
	}

	path := filepath.Join(filepath.Dir(cfg.History.DBPath), "report.html")
	if err := os.WriteFile(path, []byte(r.HTMLBody), 0600); err != nil {
		log.Fatalf("Failed to write report: %v", err)
	}
	fmt.Print(r.PlainBody)
	fmt.Printf("\nReport saved to: %s\n", path)

	if err := browser.OpenFile(path); err != nil {
		log.Printf("Failed to open report: %v", err)
	}
}

func runOpen(target string) {
	var path string
	var err error

	switch target {
	case "config":
		path, err = config.ConfigPath()
	case "screenshots":
		path = loadConfig().Screenshots.Dir
		if path == "" {
			log.Fatal("Screenshots are disabled; set KEEPALIVE_SCREENSHOT_DIR")
		}
	default:
		fmt.Printf("Unknown target: %s\n", target)
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Failed to get path: %v", err)
	}

	if err := browser.OpenFile(path); err != nil {
		log.Fatalf("Failed to open: %v", err)
	}
}
