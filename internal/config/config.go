package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// HTTP boundary
	ListenAddr string

	// Scraping
	City       string
	Queries    string
	MaxPrice   int
	MaxResults int
	UserAgent  string
	// StrategiesPath optionally points at a JSON file overriding the
	// extraction selector strategies and just-listed phrases.
	StrategiesPath string

	// Coordinator
	ReplyWait            time.Duration
	JobTimeout           time.Duration
	NavigationsPerMinute float64

	// Browser
	ProfileDir  string
	SettleDelay time.Duration
	LoginWait   time.Duration

	// Watch cycle
	WatchInterval time.Duration

	// Notification store
	NotifiedStorePath string

	// Email alerting
	SMTPHost   string
	SMTPPort   string
	Sender     string
	Password   string
	Recipients []string
}

// Load builds a Config by combining defaults, an optional .env file,
// environment variables, and CLI flags. Caller should pass the root
// *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	// .env is optional; a missing file is the normal case in production.
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg(".env file loaded")
	}

	cfg := &Config{
		LogLevel:             DefaultLogLevel,
		JSONLog:              DefaultJSONLog,
		ListenAddr:           DefaultListenAddr,
		City:                 DefaultCity,
		Queries:              DefaultQueries,
		MaxPrice:             DefaultMaxPrice,
		MaxResults:           DefaultMaxResults,
		UserAgent:            DefaultUserAgent,
		ReplyWait:            DefaultReplyWait,
		JobTimeout:           DefaultJobTimeout,
		NavigationsPerMinute: DefaultNavigationsPerMinute,
		ProfileDir:           defaultProfileDir(),
		SettleDelay:          DefaultSettleDelay,
		LoginWait:            DefaultLoginWait,
		WatchInterval:        DefaultWatchInterval,
		NotifiedStorePath:    defaultStorePath(),
		SMTPHost:             DefaultSMTPHost,
		SMTPPort:             DefaultSMTPPort,
	}

	// Environment overrides
	if v := os.Getenv("DINGBOT_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DINGBOT_PROFILE_DIR"); v != "" {
		cfg.ProfileDir = v
	}
	if v := os.Getenv("DINGBOT_NOTIFIED_STORE"); v != "" {
		cfg.NotifiedStorePath = v
	}
	if v := os.Getenv("DINGBOT_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("DINGBOT_STRATEGIES"); v != "" {
		cfg.StrategiesPath = v
	}
	cfg.Sender = os.Getenv("GMAIL_SENDER")
	cfg.Password = os.Getenv("GMAIL_APP_PASSWORD")
	if v := os.Getenv("EMAIL_RECIPIENTS"); v != "" {
		for _, r := range strings.Split(v, ",") {
			if r = strings.TrimSpace(r); r != "" {
				cfg.Recipients = append(cfg.Recipients, r)
			}
		}
	}

	// CLI flag overrides
	if cmd != nil {
		flags := cmd.Flags()
		if f := flags.Lookup("listen"); f != nil && f.Changed {
			cfg.ListenAddr = f.Value.String()
		}
		if f := flags.Lookup("city"); f != nil && f.Changed {
			cfg.City = f.Value.String()
		}
		if f := flags.Lookup("query"); f != nil && f.Changed {
			cfg.Queries = f.Value.String()
		}
		if f := flags.Lookup("interval"); f != nil && f.Changed {
			if d, err := time.ParseDuration(f.Value.String()); err == nil {
				cfg.WatchInterval = d
			}
		}
		if f := flags.Lookup("json"); f != nil && f.Value.String() == "true" {
			cfg.JSONLog = true
		}
		if f := flags.Lookup("verbose"); f != nil && f.Value.String() == "true" {
			cfg.LogLevel = "debug"
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// RegisterFlags attaches the shared persistent flags to the root command.
func RegisterFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.Bool("json", false, "Log in JSON format")
	pf.String("listen", DefaultListenAddr, "HTTP listen address")
	pf.String("city", DefaultCity, "City to watch")
	pf.String("query", DefaultQueries, "Comma-separated search terms")
	pf.String("interval", DefaultWatchInterval.String(), "Auto-scrape interval for watch")
}

func defaultProfileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dingbot/profile"
	}
	return filepath.Join(home, ".dingbot", "profile")
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dingbot/notified_items.json"
	}
	return filepath.Join(home, ".dingbot", "notified_items.json")
}
