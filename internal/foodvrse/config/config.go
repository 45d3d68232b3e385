package config

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// Config contains application configuration
type Config struct {
	RunAddress    string
	DatabaseURI   string
	RedisAddr     string
	ProfileAPIURL string
	ProfileAPIKey string
	JWTSecret     string
	StreakMode    string
	LogMode       string
	StoreTimeout  time.Duration
	PollInterval  time.Duration
}

// NewConfig creates a new configuration from command line flags and environment variables
func NewConfig() (*Config, error) {
	return Parse(os.Args[1:], os.Getenv)
}

// Parse reads flags from args, then lets non-empty environment variables override them
func Parse(args []string, getenv func(string) string) (*Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("foodvrse", flag.ContinueOnError)
	fs.StringVar(&cfg.RunAddress, "a", "", "Server run address")
	fs.StringVar(&cfg.DatabaseURI, "d", "", "Database URI (empty keeps state in memory)")
	fs.StringVar(&cfg.RedisAddr, "redis", "", "Redis address for user notifications")
	fs.StringVar(&cfg.ProfileAPIURL, "profiles", "", "Profile API base URL for the friend graph")
	fs.StringVar(&cfg.JWTSecret, "secret", "", "JWT signing secret")
	fs.StringVar(&cfg.StreakMode, "streak", "", "Streak mode: purchase or daily")
	fs.StringVar(&cfg.LogMode, "log", "", "Log mode: dev or prod")
	fs.DurationVar(&cfg.StoreTimeout, "store-timeout", 0, "Timeout of a single storage call")
	fs.DurationVar(&cfg.PollInterval, "poll", 0, "Purchase processor poll interval")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		"RUN_ADDRESS":     &cfg.RunAddress,
		"DATABASE_URI":    &cfg.DatabaseURI,
		"REDIS_ADDR":      &cfg.RedisAddr,
		"PROFILE_API_URL": &cfg.ProfileAPIURL,
		"PROFILE_API_KEY": &cfg.ProfileAPIKey,
		"JWT_SECRET":      &cfg.JWTSecret,
		"STREAK_MODE":     &cfg.StreakMode,
		"LOG_MODE":        &cfg.LogMode,
	}
	for name, dst := range overrides {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"STORE_TIMEOUT": &cfg.StoreTimeout,
		"POLL_INTERVAL": &cfg.PollInterval,
	}
	for name, dst := range durations {
		v := getenv(name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		*dst = d
	}

	// Set defaults if needed
	if cfg.RunAddress == "" {
		cfg.RunAddress = ":8080"
	}
	if cfg.StreakMode == "" {
		cfg.StreakMode = "purchase"
	}
	if cfg.LogMode == "" {
		cfg.LogMode = "dev"
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 3 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}

	return &cfg, nil
}
