// Package lifecycle exposes the states a pitwall connection moves through.
//
// A connection is single-use:
//   - Stopped -> Starting when it is opened
//   - Starting -> Running once the producer is reading
//   - Running -> Stopping when Close is called
//   - Running -> Stopped when the source ends on its own
//   - Stopping -> Stopped after a clean shutdown
//   - any active state -> Crashed on an unexpected error
//
// Stopped and Crashed are terminal. Register a Handler with
// pitwall.WithStateHandler to observe transitions.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
