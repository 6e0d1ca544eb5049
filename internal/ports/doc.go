// Package ports defines the interfaces (ports) that connect the connection
// façade to the telemetry adapters.
//
// # Port Interfaces
//
//   - [Source]: produces frames and session info, live or from a file
//   - [Transport]: optional playback controls offered by seekable sources
//   - [Logger]: structured logging abstraction
//
// # Usage
//
// pkg/pitwall depends only on these interfaces. Adapters under
// internal/adapters (live shared memory, replay files) implement them, and
// the façade discovers Transport with a type assertion rather than by
// asking which kind of source it holds.
package ports
