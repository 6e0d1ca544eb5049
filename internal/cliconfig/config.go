package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/pitwall/internal/domain"
)

// Config holds CLI configuration for pitwall.
type Config struct {
	LogLevel    string
	LogFile     string
	MetricsAddr string

	PlaybackRate float64
	Unpaced      bool

	MappingPath  string
	PollInterval time.Duration
	WaitInitial  time.Duration
	WaitMax      time.Duration

	WatchDir     string
	Debounce     time.Duration
	ScanExisting bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		LogLevel:     "info",
		PlaybackRate: 1,
		WaitInitial:  500 * time.Millisecond,
		WaitMax:      10 * time.Second,
		WatchDir:     ".",
		Debounce:     2 * time.Second,
	}
}

// Validate checks the configuration for errors and normalises values.
func (c *Config) Validate() error {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log-level: %w", domain.ErrInvalidConfig, err)
	}

	if c.PlaybackRate < 0.1 || c.PlaybackRate > 10 {
		return fmt.Errorf("%w: rate must be between 0.1 and 10, got %g", domain.ErrInvalidConfig, c.PlaybackRate)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("%w: poll interval must not be negative", domain.ErrInvalidConfig)
	}
	if c.WaitInitial <= 0 {
		return fmt.Errorf("%w: wait-initial must be positive", domain.ErrInvalidConfig)
	}
	if c.WaitMax < c.WaitInitial {
		c.WaitMax = c.WaitInitial
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("%w: debounce must be positive", domain.ErrInvalidConfig)
	}
	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
