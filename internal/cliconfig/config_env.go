package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (PITWALL_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("log-level", os.Getenv("PITWALL_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-file", os.Getenv("PITWALL_LOG_FILE"), &cfg.LogFile)
	s.setString("metrics-addr", os.Getenv("PITWALL_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("mapping", os.Getenv("PITWALL_MAPPING_PATH"), &cfg.MappingPath)
	s.setString("dir", os.Getenv("PITWALL_WATCH_DIR"), &cfg.WatchDir)

	if err := s.setDuration("poll", os.Getenv("PITWALL_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("wait-initial", os.Getenv("PITWALL_WAIT_INITIAL"), &cfg.WaitInitial); err != nil {
		return err
	}
	if err := s.setDuration("wait-max", os.Getenv("PITWALL_WAIT_MAX"), &cfg.WaitMax); err != nil {
		return err
	}
	if err := s.setDuration("debounce", os.Getenv("PITWALL_DEBOUNCE"), &cfg.Debounce); err != nil {
		return err
	}

	if err := s.setFloatFromString("rate", os.Getenv("PITWALL_RATE"), &cfg.PlaybackRate); err != nil {
		return err
	}

	s.setBoolFromString("unpaced", os.Getenv("PITWALL_UNPACED"), &cfg.Unpaced)
	s.setBoolFromString("existing", os.Getenv("PITWALL_SCAN_EXISTING"), &cfg.ScanExisting)

	return nil
}
