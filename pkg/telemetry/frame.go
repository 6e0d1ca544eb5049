package telemetry

import (
	"math"
	"time"
)

// RawFrame is an immutable snapshot of one frame buffer.
//
// Data is owned by the frame. Producers hand out fresh copies and nobody
// writes to Data after the frame has been published.
type RawFrame struct {
	// Tick is the source tick index. Within one Epoch it strictly increases.
	Tick uint32
	// Epoch is bumped whenever a replay seek restarts the tick sequence.
	Epoch uint32
	// Time is the source timestamp, Tick divided by the tick rate.
	Time time.Duration
	// SessionRevision is the session-info revision current when the frame was read.
	SessionRevision int
	// Received is the wall-clock time the producer read the frame.
	Received time.Time
	Data     []byte
}

// After reports whether f comes strictly after prev in stream order.
// A nil prev is before everything.
func (f *RawFrame) After(prev *RawFrame) bool {
	if prev == nil {
		return true
	}
	if f.Epoch != prev.Epoch {
		return TickAfter(f.Epoch, prev.Epoch)
	}
	return TickAfter(f.Tick, prev.Tick)
}

// TickAfter reports whether a follows b on a wrapping uint32 counter.
func TickAfter(a, b uint32) bool {
	return a != b && a-b < 0x80000000
}

// TickTime converts a tick index into source time at the given rate.
func TickTime(tick uint32, tickRate float64) time.Duration {
	if tickRate <= 0 {
		return 0
	}
	return time.Duration(math.Round(float64(tick) * float64(time.Second) / tickRate))
}

// SessionInfo is the session-info blob: the YAML document and its revision.
type SessionInfo struct {
	Revision int
	YAML     string
}

// Empty reports whether no document has been captured yet.
func (s SessionInfo) Empty() bool { return s.YAML == "" }
