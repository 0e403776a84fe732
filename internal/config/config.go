// Package config loads harness settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/roach88/staycheck/internal/booking"
	"github.com/roach88/staycheck/internal/partition"
)

// Environment variables.
const (
	EnvBaseURL         = "STAYCHECK_BASE_URL"
	EnvAdminUser       = "STAYCHECK_ADMIN_USER"
	EnvAdminPassword   = "STAYCHECK_ADMIN_PASSWORD"
	EnvActionTimeout   = "STAYCHECK_ACTION_TIMEOUT"
	EnvResponseTimeout = "STAYCHECK_RESPONSE_TIMEOUT"
	EnvExpectTimeout   = "STAYCHECK_EXPECT_TIMEOUT"
	EnvScenarioTimeout = "STAYCHECK_SCENARIO_TIMEOUT"
	EnvTeardownTimeout = "STAYCHECK_TEARDOWN_TIMEOUT"
	EnvRetries         = "STAYCHECK_RETRIES"
	EnvParallel        = "STAYCHECK_PARALLEL"
	EnvHeadless        = "STAYCHECK_HEADLESS"
	EnvLedger          = "STAYCHECK_LEDGER"
	EnvBaseOffset      = "STAYCHECK_BASE_OFFSET"
	EnvWidth           = "STAYCHECK_WIDTH"
	EnvCI              = "CI"
)

// DefaultBaseURL is the public demo site.
const DefaultBaseURL = "https://automationintesting.online"

// Config is the harness configuration.
type Config struct {
	BaseURL     string
	Credentials booking.Credentials

	ActionTimeout   time.Duration
	ResponseTimeout time.Duration
	ExpectTimeout   time.Duration
	ScenarioTimeout time.Duration
	TeardownTimeout time.Duration

	Retries  int
	Parallel int
	Headless bool

	// LedgerPath is the SQLite ledger file. Empty disables the ledger.
	LedgerPath string

	// BaseOffset and Width override the suite's partition when non-zero.
	BaseOffset int
	Width      int
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		Credentials:     booking.Credentials{Username: "admin", Password: "password"},
		ActionTimeout:   5 * time.Second,
		ResponseTimeout: 15 * time.Second,
		ExpectTimeout:   5 * time.Second,
		ScenarioTimeout: 30 * time.Second,
		TeardownTimeout: 15 * time.Second,
		Parallel:        4,
		Headless:        true,
	}
}

// Load reads envFiles (".env" when none are named) into the environment
// without overriding variables already set, then builds a Config from it.
// A missing default .env is not an error; a missing named file is.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Unset variables keep their defaults;
// malformed ones are errors.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := Default()
	if getenv(EnvCI) != "" {
		cfg.Retries = 2
	}

	if v := getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}
	if v := getenv(EnvAdminUser); v != "" {
		cfg.Credentials.Username = v
	}
	if v := getenv(EnvAdminPassword); v != "" {
		cfg.Credentials.Password = v
	}
	cfg.LedgerPath = getenv(EnvLedger)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{EnvActionTimeout, &cfg.ActionTimeout},
		{EnvResponseTimeout, &cfg.ResponseTimeout},
		{EnvExpectTimeout, &cfg.ExpectTimeout},
		{EnvScenarioTimeout, &cfg.ScenarioTimeout},
		{EnvTeardownTimeout, &cfg.TeardownTimeout},
	}
	for _, d := range durations {
		if err := parseDuration(getenv, d.key, d.dst); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		key string
		dst *int
		min int
	}{
		{EnvRetries, &cfg.Retries, 0},
		{EnvParallel, &cfg.Parallel, 1},
		{EnvBaseOffset, &cfg.BaseOffset, 0},
		{EnvWidth, &cfg.Width, 1},
	}
	for _, n := range ints {
		if err := parseInt(getenv, n.key, n.dst, n.min); err != nil {
			return nil, err
		}
	}

	if v := getenv(EnvHeadless); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a boolean", EnvHeadless, v)
		}
		cfg.Headless = b
	}

	return &cfg, nil
}

// Partition applies the BaseOffset and Width overrides to p.
func (c *Config) Partition(p partition.Plan) partition.Plan {
	if c.BaseOffset != 0 {
		p.BaseOffset = c.BaseOffset
	}
	if c.Width != 0 {
		p.Width = c.Width
	}
	return p
}

func parseDuration(getenv func(string) string, key string, dst *time.Duration) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s: must be positive, got %s", key, v)
	}
	*dst = d
	return nil
}

func parseInt(getenv func(string) string, key string, dst *int, min int) error {
	v := getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %q is not an integer", key, v)
	}
	if n < min {
		return fmt.Errorf("%s: must be at least %d, got %d", key, min, n)
	}
	*dst = n
	return nil
}
