package pitwall

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bft-labs/pitwall/internal/adapters/live"
	"github.com/bft-labs/pitwall/internal/adapters/replay"
	"github.com/bft-labs/pitwall/internal/app"
	"github.com/bft-labs/pitwall/internal/domain"
	"github.com/bft-labs/pitwall/internal/hub"
	"github.com/bft-labs/pitwall/internal/metrics"
	"github.com/bft-labs/pitwall/internal/ports"
	"github.com/bft-labs/pitwall/pkg/decode"
	"github.com/bft-labs/pitwall/pkg/ibt"
	"github.com/bft-labs/pitwall/pkg/lifecycle"
	"github.com/bft-labs/pitwall/pkg/log"
	"github.com/bft-labs/pitwall/pkg/session"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// HubStats summarises frame delivery across every subscription.
type HubStats = domain.HubStats

// Stats holds one subscription's delivery counters.
type Stats = domain.SubscriberStats

// Connection is one telemetry source fanned out to any number of
// subscriptions. It is safe for concurrent use.
type Connection struct {
	source    ports.Source
	transport ports.Transport // nil unless the source supports it
	hub       *hub.Hub
	lifecycle *app.Lifecycle
	producer  *app.Producer
	logger    ports.Logger

	closeOnce sync.Once
	closeErr  error
}

// ConnectLive attaches to the running simulator. It returns an error
// wrapping telemetry.ErrNoSessionFound when the simulator is not running.
func ConnectLive(ctx context.Context, opts ...Option) (*Connection, error) {
	o := applyOptions(opts)
	src, err := live.Connect(ctx, live.Options{
		MappingPath:  o.mappingPath,
		PollInterval: o.pollInterval,
		Logger:       o.logger,
	})
	if err != nil {
		return nil, err
	}
	return start(src, o)
}

// OpenReplay opens an .ibt recording. Frames are paced at the recorded
// tick rate scaled by WithPlaybackRate unless WithUnpaced is given.
func OpenReplay(path string, opts ...Option) (*Connection, error) {
	o := applyOptions(opts)
	src, err := replay.Open(path, replay.Options{
		Rate:        o.playbackRate,
		StartPaused: o.startPaused,
		Unpaced:     o.unpaced,
		Logger:      o.logger,
	})
	if err != nil {
		return nil, err
	}
	return start(src, o)
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// start wires src to a hub and launches the producer. It owns src from
// here on and closes it on failure.
func start(src ports.Source, o options) (*Connection, error) {
	if err := validateModuleVersions(); err != nil {
		src.Close()
		return nil, err
	}
	m, err := metrics.New(o.registerer)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("pitwall: metrics: %w", err)
	}

	var observer app.Observer
	if o.stateHandler != nil {
		observer = stateObserver{handler: o.stateHandler}
	}
	h := hub.New(src.TickRate(), m, o.logger)
	c := &Connection{
		source:    src,
		hub:       h,
		lifecycle: app.NewLifecycle(o.logger, observer),
		producer:  app.NewProducer(src, h, m, o.logger),
		logger:    o.logger,
	}
	if t, ok := src.(ports.Transport); ok {
		c.transport = t
	}

	if err := c.lifecycle.TransitionTo(app.StateStarting, "connection opened"); err != nil {
		src.Close()
		return nil, err
	}
	if err := c.producer.PublishSession(); err != nil {
		c.hub.Close(err)
		_ = c.lifecycle.Finish(app.StateCrashed, "initial session read failed", err)
		src.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.lifecycle.SetCancel(cancel)
	c.lifecycle.Go(func() { c.run(ctx) })
	return c, nil
}

func (c *Connection) run(ctx context.Context) {
	if err := c.lifecycle.TransitionTo(app.StateRunning, "producer started"); err != nil {
		// Close won the race before the producer got going.
		c.finish(ctx, nil)
		return
	}
	c.finish(ctx, c.producer.Run(ctx))
}

// finish closes the hub with the producer's outcome and records it.
func (c *Connection) finish(ctx context.Context, err error) {
	switch {
	case err == nil || ctx.Err() != nil:
		c.hub.Close(nil)
		_ = c.lifecycle.Finish(app.StateStopped, "closed", nil)
	case errors.Is(err, telemetry.ErrSourceClosed):
		c.hub.Close(err)
		c.logger.Info("source ended", log.Err(err))
		_ = c.lifecycle.Finish(app.StateStopped, "source ended", err)
	default:
		c.logger.Error("producer failed", log.Err(err))
		c.hub.Close(err)
		_ = c.lifecycle.Finish(app.StateCrashed, err.Error(), telemetry.Closed(err))
	}
}

// Close stops the producer, ends every subscription with
// telemetry.ErrSourceClosed and releases the source. It is idempotent.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		if c.lifecycle.CanStop() {
			_ = c.lifecycle.TransitionTo(app.StateStopping, "Close() called")
		}
		c.lifecycle.Cancel()
		c.hub.Close(nil)

		waitErr := c.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
		if waitErr != nil {
			_ = c.lifecycle.Finish(app.StateCrashed, "shutdown timeout", waitErr)
		}
		c.closeErr = errors.Join(waitErr, c.source.Close())
	})
	return c.closeErr
}

// Done is closed when the connection ends, by Close or because the
// source ended.
func (c *Connection) Done() <-chan struct{} { return c.lifecycle.Done() }

// Err returns why the connection ended: nil after Close, otherwise an
// error wrapping telemetry.ErrSourceClosed and its cause.
func (c *Connection) Err() error { return c.lifecycle.Err() }

// State returns the current lifecycle state.
func (c *Connection) State() lifecycle.State { return convertState(c.lifecycle.State()) }

// Header returns the variable table of the source.
func (c *Connection) Header() *telemetry.VariableHeader { return c.source.Header() }

// TickRate returns the source tick rate in Hz.
func (c *Connection) TickRate() float64 { return c.source.TickRate() }

// Stats returns delivery counters for the hub and all open subscriptions.
func (c *Connection) Stats() HubStats { return c.hub.Stats() }

// Session returns the latest session snapshot, if one has been read.
func (c *Connection) Session() (*SessionUpdate, bool) { return c.hub.LatestSession() }

// SessionUpdates returns an independent stream of session revisions.
func (c *Connection) SessionUpdates() *SessionStream {
	return &SessionStream{cursor: c.hub.Sessions()}
}

// Compile validates mapping against this connection's header. It is what
// Subscribe does before attaching, exposed for tools that only decode.
func Compile[T any](c *Connection, mapping *decode.Mapping[T]) (*decode.Plan[T], error) {
	return decode.Compile(mapping, c.source.Header())
}

// Transport controls. They return telemetry.ErrNotReplay on a live connection.

func (c *Connection) Pause() error {
	t, err := c.replay()
	if err != nil {
		return err
	}
	t.Pause()
	return nil
}

func (c *Connection) Resume() error {
	t, err := c.replay()
	if err != nil {
		return err
	}
	t.Resume()
	return nil
}

// Seek moves playback to tick. Subscribers see the jump as a new epoch.
func (c *Connection) Seek(tick int) error {
	t, err := c.replay()
	if err != nil {
		return err
	}
	return t.Seek(tick)
}

// SetRate sets the playback multiplier, clamped to [0.1, 10].
func (c *Connection) SetRate(mult float64) error {
	t, err := c.replay()
	if err != nil {
		return err
	}
	return t.SetRate(mult)
}

// Position returns the index of the next replay frame.
func (c *Connection) Position() (int, error) {
	t, err := c.replay()
	if err != nil {
		return 0, err
	}
	return t.Position(), nil
}

// Len returns the number of frames in the recording.
func (c *Connection) Len() (int, error) {
	t, err := c.replay()
	if err != nil {
		return 0, err
	}
	return t.Len(), nil
}

// Paused reports whether replay is paused. Live connections are never paused.
func (c *Connection) Paused() bool {
	return c.transport != nil && c.transport.Paused()
}

func (c *Connection) replay() (ports.Transport, error) {
	if c.transport == nil {
		return nil, telemetry.ErrNotReplay
	}
	return c.transport, nil
}

// stateObserver adapts a lifecycle.Handler to the internal observer.
type stateObserver struct {
	handler lifecycle.Handler
}

func (s stateObserver) OnStateChange(previous, current app.State, reason string) {
	s.handler.OnStateChange(lifecycle.Event{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func convertState(s app.State) lifecycle.State {
	switch s {
	case app.StateStopped:
		return lifecycle.StateStopped
	case app.StateStarting:
		return lifecycle.StateStarting
	case app.StateRunning:
		return lifecycle.StateRunning
	case app.StateStopping:
		return lifecycle.StateStopping
	case app.StateCrashed:
		return lifecycle.StateCrashed
	default:
		return lifecycle.StateStopped
	}
}

// validateModuleVersions checks that all module versions are compatible.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"telemetry": {telemetry.Version, telemetry.MinCompatibleVersion},
		"decode":    {decode.Version, decode.MinCompatibleVersion},
		"session":   {session.Version, session.MinCompatibleVersion},
		"ibt":       {ibt.Version, ibt.MinCompatibleVersion},
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"log":       {log.Version, log.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("pitwall: module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible reports whether version >= minVersion, both in
// "major.minor.patch" form.
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
