// Package session parses the YAML session-info document published next to
// the telemetry frames, and carries the irsdk bitflag constants used by
// SessionFlags, EngineWarnings, PitSvFlags and incident variables.
//
// The simulator's YAML is not always valid: it can carry stray control bytes
// and unquoted user-supplied names. Preprocess repairs both before Parse hands
// the text to yaml.v3.
package session
