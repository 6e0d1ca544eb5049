package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	LogLevel     string  `toml:"log_level"`
	LogFile      string  `toml:"log_file"`
	MetricsAddr  string  `toml:"metrics_addr"`
	PlaybackRate float64 `toml:"rate"`
	Unpaced      *bool   `toml:"unpaced"`
	MappingPath  string  `toml:"mapping_path"`
	PollInterval string  `toml:"poll_interval"`
	WaitInitial  string  `toml:"wait_initial"`
	WaitMax      string  `toml:"wait_max"`
	WatchDir     string  `toml:"watch_dir"`
	Debounce     string  `toml:"debounce"`
	ScanExisting *bool   `toml:"scan_existing"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.pitwall/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".pitwall", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("mapping", fc.MappingPath, &cfg.MappingPath)
	s.setString("dir", fc.WatchDir, &cfg.WatchDir)

	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("wait-initial", fc.WaitInitial, &cfg.WaitInitial); err != nil {
		return err
	}
	if err := s.setDuration("wait-max", fc.WaitMax, &cfg.WaitMax); err != nil {
		return err
	}
	if err := s.setDuration("debounce", fc.Debounce, &cfg.Debounce); err != nil {
		return err
	}

	s.setFloat("rate", fc.PlaybackRate, &cfg.PlaybackRate)

	s.setBool("unpaced", fc.Unpaced, &cfg.Unpaced)
	s.setBool("existing", fc.ScanExisting, &cfg.ScanExisting)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
