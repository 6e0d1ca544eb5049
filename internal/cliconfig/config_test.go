package cliconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/pitwall/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.PlaybackRate != 1 {
		t.Errorf("PlaybackRate = %v, want 1", cfg.PlaybackRate)
	}
	if cfg.Debounce != 2*time.Second {
		t.Errorf("Debounce = %v, want 2s", cfg.Debounce)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func(mod func(*Config)) Config {
		c := DefaultConfig()
		mod(&c)
		return c
	}

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"rate at lower bound", valid(func(c *Config) { c.PlaybackRate = 0.1 }), false},
		{"rate at upper bound", valid(func(c *Config) { c.PlaybackRate = 10 }), false},
		{"rate too low", valid(func(c *Config) { c.PlaybackRate = 0.01 }), true},
		{"rate too high", valid(func(c *Config) { c.PlaybackRate = 11 }), true},
		{"unknown log level", valid(func(c *Config) { c.LogLevel = "chatty" }), true},
		{"negative poll", valid(func(c *Config) { c.PollInterval = -time.Millisecond }), true},
		{"zero wait", valid(func(c *Config) { c.WaitInitial = 0 }), true},
		{"zero debounce", valid(func(c *Config) { c.Debounce = 0 }), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Validate() error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_Validate_Derivations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "  DEBUG "
	cfg.WaitInitial = 3 * time.Second
	cfg.WaitMax = time.Second

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.WaitMax != cfg.WaitInitial {
		t.Errorf("WaitMax = %v, want raised to %v", cfg.WaitMax, cfg.WaitInitial)
	}

	empty := DefaultConfig()
	empty.LogLevel = ""
	if err := empty.Validate(); err != nil || empty.LogLevel != "info" {
		t.Errorf("empty level: err=%v level=%q, want info", err, empty.LogLevel)
	}
}

func TestNewLogger_File(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "pitwall.log")

	logger, closer, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger() = %v", err)
	}
	logger.Info("hello")
	logger.Debug("filtered at info")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	b, err := os.ReadFile(cfg.LogFile)
	if err != nil {
		t.Fatal(err)
	}
	got := string(b)
	if !strings.Contains(got, `"message":"hello"`) {
		t.Errorf("log file missing message: %s", got)
	}
	if strings.Contains(got, "filtered at info") {
		t.Errorf("debug line written at info level: %s", got)
	}
}

func TestNewLogger_Console(t *testing.T) {
	logger, closer, err := NewLogger(DefaultConfig())
	if err != nil {
		t.Fatalf("NewLogger() = %v", err)
	}
	if logger == nil {
		t.Fatal("NewLogger() returned nil logger")
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestSetLogLevel(t *testing.T) {
	defer SetLogLevel("info")

	cfg := DefaultConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "pitwall.log")
	logger, closer, err := NewLogger(cfg)
	if err != nil {
		t.Fatalf("NewLogger() = %v", err)
	}
	defer closer.Close()

	logger.Debug("before")
	if err := SetLogLevel("debug"); err != nil {
		t.Fatalf("SetLogLevel() = %v", err)
	}
	logger.Debug("after")

	b, err := os.ReadFile(cfg.LogFile)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "before") || !strings.Contains(string(b), "after") {
		t.Errorf("unexpected log contents: %s", b)
	}
	if err := SetLogLevel("chatty"); err == nil {
		t.Error("SetLogLevel() expected error for unknown level")
	}
}

func TestNewLogger_BadLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "chatty"
	if _, _, err := NewLogger(cfg); err == nil {
		t.Error("NewLogger() expected error for unknown level")
	}
}
