package ports

import (
	"context"

	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// Source produces telemetry frames. Exactly one goroutine calls NextTick.
type Source interface {
	// Header returns the variable layout. It does not change for the
	// lifetime of the source.
	Header() *telemetry.VariableHeader

	// TickRate returns the native sample rate in Hz.
	TickRate() float64

	// SessionInfo returns the current session-info blob.
	SessionInfo() (telemetry.SessionInfo, error)

	// NextTick blocks until a frame newer than the previous one is available.
	// At the end of the stream it returns an error matching
	// telemetry.ErrSourceClosed, carrying the reason.
	NextTick(ctx context.Context) (*telemetry.RawFrame, error)

	// Close releases the underlying mapping or file. It is idempotent and
	// unblocks a pending NextTick.
	Close() error
}

// Transport is the playback capability of seekable sources.
type Transport interface {
	Pause()
	Resume()
	Paused() bool

	// Seek moves the read position to tick and starts a new epoch.
	Seek(tick int) error

	// SetRate sets the playback multiplier; values are clamped to [0.1, 10].
	SetRate(mult float64) error
	Rate() float64

	// Position returns the index of the next frame to be read.
	Position() int

	// Len returns the number of frames in the recording.
	Len() int
}
