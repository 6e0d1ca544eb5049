package pitwall

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/pitwall/pkg/lifecycle"
	"github.com/bft-labs/pitwall/pkg/log"
)

// Option configures optional behavior of a Connection.
type Option func(*options)

// options holds the optional configuration for a Connection.
type options struct {
	logger       log.Logger
	registerer   prometheus.Registerer
	stateHandler lifecycle.Handler

	// replay
	startPaused  bool
	playbackRate float64
	unpaced      bool

	// live
	mappingPath  string
	pollInterval time.Duration
}

func defaultOptions() options {
	return options{
		logger:       log.NewNoopLogger(),
		playbackRate: 1,
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.OrNoop(logger)
	}
}

// WithMetrics registers the connection's Prometheus collectors with reg.
// Connections sharing a registry share their collectors.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithStateHandler sets a handler for lifecycle transitions.
func WithStateHandler(h lifecycle.Handler) Option {
	return func(o *options) {
		o.stateHandler = h
	}
}

// WithStartPaused opens a replay paused at its first frame.
// Ignored by live connections.
func WithStartPaused() Option {
	return func(o *options) {
		o.startPaused = true
	}
}

// WithPlaybackRate sets the initial replay speed multiplier.
// Ignored by live connections.
func WithPlaybackRate(mult float64) Option {
	return func(o *options) {
		o.playbackRate = mult
	}
}

// WithUnpaced delivers replay frames as fast as they can be read.
// Ignored by live connections.
func WithUnpaced() Option {
	return func(o *options) {
		o.unpaced = true
	}
}

// WithMappingPath overrides the shared-memory file used on unix.
func WithMappingPath(path string) Option {
	return func(o *options) {
		o.mappingPath = path
	}
}

// WithPollInterval overrides how often a live connection polls for data
// when the simulator's data event is unavailable.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}
