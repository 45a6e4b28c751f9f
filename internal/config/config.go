package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/cyp0633/icalrecur/recurrence"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	FormatText = "text"
	FormatXML  = "xml"
)

// Config is the configuration of the icalrecur command.
type Config struct {
	// Timezone is the IANA zone occurrences are displayed in. Empty keeps
	// each occurrence in its own zone.
	Timezone string `yaml:"timezone"`

	// WeekStart is "monday" (default) or "sunday". It only affects the
	// start of the default window.
	WeekStart string `yaml:"week_start"`

	// WindowDays is the length of the default window, starting at the
	// beginning of the current week.
	WindowDays int `yaml:"window_days"`

	// Format is "text" or "xml".
	Format string `yaml:"format"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Engine recurrence.EngineConfig `yaml:"engine"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Timezone:   "",
		WeekStart:  "monday",
		WindowDays: 30,
		Format:     FormatText,
		LogLevel:   "info",
		Engine:     recurrence.DefaultEngineConfig,
	}
}

// Normalize fills in missing or unknown values with defaults.
func (c *Config) Normalize() {
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = "monday"
	}
	if c.WindowDays <= 0 {
		c.WindowDays = 30
	}
	switch c.Format {
	case FormatText, FormatXML:
	default:
		c.Format = FormatText
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = "info"
	}
	c.Engine.Normalize()
}

// Load reads the YAML file at path. An empty path or a missing file yields
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Location resolves Timezone. It returns nil for an empty Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return nil, nil
	}
	return time.LoadLocation(c.Timezone)
}

// WeekStartDay returns WeekStart as a time.Weekday.
func (c *Config) WeekStartDay() time.Weekday {
	if c.WeekStart == "sunday" {
		return time.Sunday
	}
	return time.Monday
}

// SlogLevel returns LogLevel as a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
