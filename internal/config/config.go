// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, the process exits.
package config

import (
	"fmt"
	"os"
	"strconv"
)

const defaultBaseURL = "https://employer.fastjobs.sg"

// Config holds all runtime configuration for the bump bot.
type Config struct {
	// Behaviour
	DryRun        bool // simulate only, never click confirm (default true)
	LimitJobs     int  // 0 = process every discovered posting
	EverySeconds  int  // 0 = run once; >0 = inter-cycle interval
	Headless      bool // run the browser headless (default true)

	// Portal
	BaseURL   string
	LoginURL  string
	Email     string
	Password  string
	CompanyID string // optional; auto-detected from the account page when empty

	// Paths
	StorageState string // persisted session-state file
	DBPath       string // SQLite database file
	DataDir      string // diagnostic screenshots and page dumps

	// Optional collaborators
	DatabaseURL   string // non-empty switches storage to PostgreSQL
	RedisURL      string // non-empty enables bump event publishing
	DashboardPort string // empty disables the reporting API
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		DryRun:        true,
		Headless:      true,
		BaseURL:       defaultBaseURL,
		Email:         os.Getenv("FASTJOBS_EMAIL"),
		Password:      os.Getenv("FASTJOBS_PASSWORD"),
		CompanyID:     os.Getenv("FASTJOBS_COYID"),
		StorageState:  envOr("STORAGE_STATE", "storage/state.json"),
		DBPath:        envOr("DB_PATH", "data/fastjob.db"),
		DataDir:       envOr("DATA_DIR", "data"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		DashboardPort: "8080",
	}
	// Explicitly empty disables the reporting API.
	if port, ok := os.LookupEnv("DASHBOARD_PORT"); ok {
		cfg.DashboardPort = port
	}
	cfg.LoginURL = envOr("FASTJOBS_LOGIN_URL", cfg.BaseURL+"/site/login/")

	var err error
	if cfg.DryRun, err = envBool("DRY_RUN", true); err != nil {
		return nil, err
	}
	if cfg.Headless, err = envBool("HEADLESS", true); err != nil {
		return nil, err
	}
	if cfg.LimitJobs, err = envInt("LIMIT_JOBS", 0); err != nil {
		return nil, err
	}
	if cfg.EverySeconds, err = envInt("EVERY_SECONDS", 0); err != nil {
		return nil, err
	}

	if !cfg.DryRun && (cfg.Email == "" || cfg.Password == "") {
		return nil, fmt.Errorf("FASTJOBS_EMAIL and FASTJOBS_PASSWORD are required when DRY_RUN=false")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, s)
	}
	return v, nil
}

func envInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, s)
	}
	return v, nil
}
