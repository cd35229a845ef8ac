// Package config loads studio settings from kiln.yaml, KILN_* environment
// variables and built-in defaults, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example/kiln/internal/core/calendar"
)

// EnvPrefix is prepended to every environment override, e.g. KILN_HTTP_ADDR.
const EnvPrefix = "KILN"

// weekdayKeys maps time.Weekday to its capacity.weekly key.
var weekdayKeys = [7]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

// Config is the resolved studio configuration.
type Config struct {
	DatabasePath  string
	HTTPAddr      string
	LookaheadDays int
	LockTTL       time.Duration
	Weekly        calendar.WeeklyTemplate
	CatalogPath   string // Empty selects the embedded catalog
	LogLevel      string

	// File is the config file that was read, empty when running on defaults.
	File string
}

// DefaultDir returns ~/.kiln.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kiln"
	}
	return filepath.Join(home, ".kiln")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("database.path", filepath.Join(DefaultDir(), "kiln.db"))
	v.SetDefault("http.addr", "127.0.0.1:8080")
	v.SetDefault("schedule.lookahead_days", 365)
	v.SetDefault("schedule.lock_ttl", "5m")
	v.SetDefault("catalog.path", "")
	v.SetDefault("log.level", "info")
	stock := calendar.DefaultTemplate()
	for day, key := range weekdayKeys {
		v.SetDefault("capacity.weekly."+key, stock[day])
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves configuration. An explicit file must exist; otherwise
// kiln.yaml is searched for in the working directory and then ~/.kiln, and
// a missing file falls back to defaults.
func Load(file string) (*Config, error) {
	v := newViper()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("kiln")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		DatabasePath:  v.GetString("database.path"),
		HTTPAddr:      v.GetString("http.addr"),
		LookaheadDays: v.GetInt("schedule.lookahead_days"),
		LockTTL:       v.GetDuration("schedule.lock_ttl"),
		CatalogPath:   v.GetString("catalog.path"),
		LogLevel:      strings.ToLower(v.GetString("log.level")),
		File:          v.ConfigFileUsed(),
	}
	for day, key := range weekdayKeys {
		cfg.Weekly[day] = v.GetFloat64("capacity.weekly." + key)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field in one error.
func (c *Config) Validate() error {
	var errs []string

	if c.DatabasePath == "" {
		errs = append(errs, "database.path must not be empty")
	}
	if c.LookaheadDays < 1 {
		errs = append(errs, fmt.Sprintf("schedule.lookahead_days must be at least 1, got %d", c.LookaheadDays))
	}
	if c.LockTTL <= 0 {
		errs = append(errs, fmt.Sprintf("schedule.lock_ttl must be positive, got %s", c.LockTTL))
	}
	for day, hours := range c.Weekly {
		if hours < 0 || hours > 24 {
			errs = append(errs, fmt.Sprintf("capacity.weekly.%s must be between 0 and 24, got %v", weekdayKeys[day], hours))
		}
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q is invalid, must be one of: debug, info, warn, error", s)
	}
	return level, nil
}

// WriteDefault writes a kiln.yaml holding the default settings to path.
// An existing file is left untouched.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	v := newViper()
	v.SetConfigType("yaml")
	if err := v.SafeWriteConfigAs(path); err != nil {
		var exists viper.ConfigFileAlreadyExistsError
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
