// Package irsdk decodes the binary layout shared by the simulator's live
// memory-mapped feed and its .ibt telemetry files.
//
// Both sources start with the same 112-byte header (version, status, tick
// rate, session-info location, variable-table location and up to four
// rotating buffer slots) and describe their channels with identical
// 144-byte variable header entries. Files pad the header to 144 bytes and
// follow it with a 32-byte DiskHeader.
//
// All integers are little-endian.
package irsdk
