// Package telemetry defines the data model shared by every pitwall component.
//
// A telemetry feed is described once by a VariableHeader: an ordered table of
// named, typed channels at fixed byte offsets inside each frame buffer. The
// producer then emits RawFrame snapshots, each an immutable copy of one
// buffer tagged with its tick, and SessionInfo blobs carrying the YAML
// session document together with its revision counter.
//
// # Rates
//
// Consumers choose how often they want frames with UpdateRate:
//
//	telemetry.Native     // every source tick
//	telemetry.Max(10)    // at most 10 frames per second of source time
//
// # Errors
//
// All errors returned by pitwall packages wrap one of the class sentinels in
// this package (ErrConnect, ErrReplay, ErrFormat, ErrSchema) or, for the
// expected end of a stream, ErrSourceClosed. Use errors.Is to classify them.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package telemetry
