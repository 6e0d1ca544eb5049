// Package log provides the logging abstraction used across pitwall.
//
// The library never writes logs on its own: every component receives a
// Logger through options and defaults to NoopLogger. The CLI wires the
// zerolog adapter.
//
// # Usage
//
//	logger := log.NewZerologAdapterWithLogger(zerolog.New(os.Stderr))
//	conn, err := pitwall.OpenReplay("session.ibt", pitwall.WithLogger(logger))
//
// Telemetry-specific field helpers keep keys consistent between packages:
//
//	logger.Debug("frame published", log.Tick(f.Tick), log.Revision(f.SessionRevision))
//
// # Custom Loggers
//
// Implement the Logger interface to route pitwall logs into an existing
// logging setup:
//
//	type MyLogger struct { ... }
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package log
