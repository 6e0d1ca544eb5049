package domain

import "errors"

// Lifecycle errors for the connection's producer worker. Telemetry errors
// live in pkg/telemetry; these never cross the public API unwrapped.
var (
	// ErrAlreadyRunning is returned when the producer is started twice.
	ErrAlreadyRunning = errors.New("pitwall: already running")

	// ErrNotRunning is returned when a stopped producer is stopped again.
	ErrNotRunning = errors.New("pitwall: not running")

	// ErrShutdownTimeout is returned when the producer does not exit in time.
	ErrShutdownTimeout = errors.New("pitwall: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("pitwall: invalid configuration")
)
