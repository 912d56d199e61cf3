package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/verba/internal/models"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Logging     LoggingConfig  `toml:"logging"`
	Storage     StorageConfig  `toml:"storage"`
	Browser     BrowserConfig  `toml:"browser"`
	Scraper     ScraperConfig  `toml:"scraper"`
	Cache       CacheConfig    `toml:"cache"`
	Accounts    AccountsConfig `toml:"accounts"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// BrowserConfig controls the per-attempt Chrome automation context
type BrowserConfig struct {
	Headless       bool          `toml:"headless"`        // Run Chrome headless
	DisableGPU     bool          `toml:"disable_gpu"`     // Pass --disable-gpu
	NoSandbox      bool          `toml:"no_sandbox"`      // Pass --no-sandbox (containers)
	UserAgent      string        `toml:"user_agent"`      // Identity string presented upstream
	RequestTimeout time.Duration `toml:"request_timeout"` // Hard bound on one whole attempt
	WaitTimeout    time.Duration `toml:"wait_timeout"`    // Bound on individual selector waits
	MinHumanDelay  time.Duration `toml:"min_human_delay"` // Lower bound of randomized pacing delay
	MaxHumanDelay  time.Duration `toml:"max_human_delay"` // Upper bound of randomized pacing delay
	SnapshotDir    string        `toml:"snapshot_dir"`    // Diagnostic page captures on failures
}

// ScraperConfig controls target-site specifics and extraction behavior.
// Selectors and challenge markers live in config because the upstream UI
// shifts more often than this binary ships.
type ScraperConfig struct {
	BaseURL          string        `toml:"base_url"`          // Target site root
	LoginPath        string        `toml:"login_path"`        // Path of the login page
	Language         string        `toml:"language"`          // Locale the results UI must use (e.g. "en")
	TableRetries     int           `toml:"table_retries"`     // Waits for the results table before giving up
	TableBackoff     time.Duration `toml:"table_backoff"`     // Delay between table waits
	ChallengeMarkers []string      `toml:"challenge_markers"` // Page-text fragments that signal a verification challenge
	ChallengeRoutes  []string      `toml:"challenge_routes"`  // URL segments that signal a verification route
	AttemptDelay     time.Duration `toml:"attempt_delay"`     // Minimum spacing between sequential account attempts
}

// CacheConfig controls the in-memory response cache
type CacheConfig struct {
	Enabled         bool          `toml:"enabled"`
	TTL             time.Duration `toml:"ttl"`
	CleanupSchedule string        `toml:"cleanup_schedule"` // Cron expression for expired-entry sweeps
}

// AccountsConfig holds the ordered scraper account pool
type AccountsConfig struct {
	Account []models.Account `toml:"account"`
}

// NewDefaultConfig returns a config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/verba",
				ResetOnStartup: false,
			},
		},
		Browser: BrowserConfig{
			Headless:       true,
			DisableGPU:     true,
			NoSandbox:      false,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			RequestTimeout: 120 * time.Second,
			WaitTimeout:    15 * time.Second,
			MinHumanDelay:  400 * time.Millisecond,
			MaxHumanDelay:  1500 * time.Millisecond,
			SnapshotDir:    "./data/snapshots",
		},
		Scraper: ScraperConfig{
			BaseURL:      "https://keywordtool.io",
			LoginPath:    "/user/login",
			Language:     "en",
			TableRetries: 3,
			TableBackoff: 2 * time.Second,
			ChallengeMarkers: []string{
				"one-time password",
				"verification code",
				"captcha",
				"too many",
				"rate limit",
			},
			ChallengeRoutes: []string{
				"verify", "otp", "two-factor", "2fa", "captcha", "challenge",
			},
			AttemptDelay: 3 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:         true,
			TTL:             15 * time.Minute,
			CleanupSchedule: "*/5 * * * *",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2
// -> ... -> env. Later files override earlier ones; CLI flags are applied on
// top by the caller via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("VERBA_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("VERBA_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("VERBA_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if level := os.Getenv("VERBA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("VERBA_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if badgerPath := os.Getenv("VERBA_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if headless := os.Getenv("VERBA_BROWSER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if baseURL := os.Getenv("VERBA_SCRAPER_BASE_URL"); baseURL != "" {
		config.Scraper.BaseURL = baseURL
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// IsProduction returns true when running in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// LoginURL returns the absolute URL of the login page
func (c *Config) LoginURL() string {
	return strings.TrimRight(c.Scraper.BaseURL, "/") + c.Scraper.LoginPath
}
