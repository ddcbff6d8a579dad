// Package config builds the process-wide configuration. The Config struct is
// constructed once at startup and passed by reference; nothing reads the
// environment after that.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Modes controlling how much of the tool surface is registered.
const (
	ModeRapid = "rapid" // base set only (default)
	ModePro   = "pro"   // everything
)

// Config is the immutable process configuration.
type Config struct {
	// Upstream credentials.
	ScraperToken string
	PublicToken  string
	PublicKey    string

	// Upstream endpoints.
	TasksURL     string
	UniversalURL string
	SERPURL      string

	// Tool surface.
	Mode  string
	Tools []string // explicit allowlist on top of the mode's base set

	// Task lifecycle defaults.
	PollInterval time.Duration
	MaxWait      time.Duration

	// Batch executor bounds.
	BatchConcurrency    int
	BatchConcurrencyCap int

	// Optional overrides.
	CatalogFile string
	DebugAddr   string
}

// Default returns the configuration defaults, before environment overrides.
func Default() *Config {
	return &Config{
		TasksURL:            "https://api.scrapeplatform.com/tasks",
		UniversalURL:        "https://universal.scrapeplatform.com/request",
		SERPURL:             "https://serp.scrapeplatform.com/request",
		Mode:                ModeRapid,
		PollInterval:        2 * time.Second,
		MaxWait:             300 * time.Second,
		BatchConcurrency:    5,
		BatchConcurrencyCap: 20,
		DebugAddr:           ":8871",
	}
}

// FromEnv builds the config from SCRAPEGATE_* environment variables on top of
// the defaults.
func FromEnv() (*Config, error) {
	cfg := Default()

	cfg.ScraperToken = os.Getenv("SCRAPEGATE_SCRAPER_TOKEN")
	cfg.PublicToken = os.Getenv("SCRAPEGATE_PUBLIC_TOKEN")
	cfg.PublicKey = os.Getenv("SCRAPEGATE_PUBLIC_KEY")

	if v := os.Getenv("SCRAPEGATE_TASKS_URL"); v != "" {
		cfg.TasksURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("SCRAPEGATE_UNIVERSAL_URL"); v != "" {
		cfg.UniversalURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("SCRAPEGATE_SERP_URL"); v != "" {
		cfg.SERPURL = strings.TrimRight(v, "/")
	}

	if v := os.Getenv("SCRAPEGATE_MODE"); v != "" {
		mode := strings.ToLower(strings.TrimSpace(v))
		if mode != ModeRapid && mode != ModePro {
			return nil, fmt.Errorf("invalid SCRAPEGATE_MODE %q (want %q or %q)", v, ModeRapid, ModePro)
		}
		cfg.Mode = mode
	}
	if v := os.Getenv("SCRAPEGATE_TOOLS"); v != "" {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cfg.Tools = append(cfg.Tools, t)
			}
		}
	}

	if v := os.Getenv("SCRAPEGATE_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid SCRAPEGATE_POLL_INTERVAL %q", v)
		}
		cfg.PollInterval = d
	}
	if v := os.Getenv("SCRAPEGATE_MAX_WAIT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid SCRAPEGATE_MAX_WAIT %q", v)
		}
		cfg.MaxWait = d
	}
	if v := os.Getenv("SCRAPEGATE_BATCH_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SCRAPEGATE_BATCH_CONCURRENCY %q", v)
		}
		cfg.BatchConcurrency = n
	}

	cfg.CatalogFile = os.Getenv("SCRAPEGATE_CATALOG_FILE")
	if v := os.Getenv("SCRAPEGATE_DEBUG_ADDR"); v != "" {
		cfg.DebugAddr = v
	}

	return cfg, nil
}

// ToolEnabled reports whether a tool should be registered under the current
// mode and allowlist. Evaluated once at registration time.
func (c *Config) ToolEnabled(name string, base bool) bool {
	if c.Mode == ModePro || base {
		return true
	}
	for _, t := range c.Tools {
		if strings.EqualFold(t, name) {
			return true
		}
	}
	return false
}
