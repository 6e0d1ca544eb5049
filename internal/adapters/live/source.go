// Package live reads the simulator's shared-memory telemetry region.
//
// The region starts with the irsdk header, followed by the variable table,
// the session YAML and up to four rotating frame buffers. The simulator
// writes a buffer and then bumps its tick count, so a reader copies the
// newest buffer and re-checks the tick to detect a torn read.
package live

import (
	"context"
	"fmt"
	"time"

	"github.com/bft-labs/pitwall/internal/ports"
	"github.com/bft-labs/pitwall/pkg/irsdk"
	"github.com/bft-labs/pitwall/pkg/log"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// Names of the simulator's shared objects.
const (
	MappingName       = "Local\\IRSDKMemMapFileName"
	DataEventName     = "Local\\IRSDKDataValidEvent"
	DefaultUnixPath   = "/dev/shm/IRSDKMemMapFileName"
	maxReadAttempts   = 4
	maxSessionRetries = 4
)

// Options configures Connect.
type Options struct {
	// MappingPath overrides the unix mapping file.
	MappingPath string
	// PollInterval overrides the wait between polls when no event is
	// available. Zero means half a tick.
	PollInterval time.Duration
	Logger       ports.Logger
}

// region is a mapped view of the shared memory. Bytes may change under the
// reader at any time.
type region interface {
	Bytes() []byte
	// Wait blocks until the simulator signals new data, d elapses or ctx ends.
	Wait(ctx context.Context, d time.Duration) error
	Close() error
}

// Source implements ports.Source over a live region.
type Source struct {
	region   region
	header   irsdk.Header
	vars     *telemetry.VariableHeader
	tickRate float64
	poll     time.Duration
	logger   ports.Logger

	last    uint32
	hasLast bool
}

var _ ports.Source = (*Source)(nil)

// Connect attaches to the running simulator. It fails with
// telemetry.ErrNoSessionFound when the region is absent or the simulator is
// not connected.
func Connect(ctx context.Context, opts Options) (*Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := openRegion(opts)
	if err != nil {
		return nil, err
	}
	s, err := newSource(r, opts)
	if err != nil {
		r.Close()
		return nil, err
	}
	return s, nil
}

func newSource(r region, opts Options) (*Source, error) {
	b := r.Bytes()
	h, err := irsdk.ParseHeader(b)
	if err != nil {
		return nil, err
	}
	if err := h.Validate(int64(len(b)), 1); err != nil {
		return nil, err
	}
	if h.BufLen <= 0 {
		return nil, telemetry.FormatErrorf(telemetry.ErrCorruptHeader, "bufLen %d", h.BufLen)
	}
	for i := 0; i < int(h.NumBuf); i++ {
		if end := int64(h.VarBuf[i].BufOffset) + int64(h.BufLen); h.VarBuf[i].BufOffset < 0 || end > int64(len(b)) {
			return nil, telemetry.FormatErrorf(telemetry.ErrTruncated, "buffer %d ends at %d, region is %d bytes", i, end, len(b))
		}
	}
	if !h.Connected() {
		return nil, fmt.Errorf("%w: simulator not connected", telemetry.ErrNoSessionFound)
	}
	vars, err := irsdk.BuildVariableHeader(b, h)
	if err != nil {
		return nil, err
	}

	rate := float64(h.TickRate)
	if rate <= 0 {
		rate = irsdk.DefaultTickRate
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = time.Duration(float64(time.Second) / (2 * rate))
	}
	s := &Source{
		region:   r,
		header:   h,
		vars:     vars,
		tickRate: rate,
		poll:     poll,
		logger:   log.OrNoop(opts.Logger),
	}
	s.logger.Info("live telemetry attached",
		log.Int("variables", vars.Len()),
		log.Float64("tick_rate", rate),
		log.Int("buffers", int(h.NumBuf)),
	)
	return s, nil
}

func (s *Source) Header() *telemetry.VariableHeader { return s.vars }
func (s *Source) TickRate() float64                 { return s.tickRate }

// SessionInfo reads the current YAML document. The read is retried when
// the revision moves underneath it.
func (s *Source) SessionInfo() (telemetry.SessionInfo, error) {
	b := s.region.Bytes()
	var last error
	for i := 0; i < maxSessionRetries; i++ {
		h, err := irsdk.ParseHeader(b)
		if err != nil {
			return telemetry.SessionInfo{}, err
		}
		yaml, err := irsdk.SessionYAML(b, h)
		if err != nil {
			last = err
			continue
		}
		after, err := irsdk.ParseHeader(b)
		if err != nil {
			return telemetry.SessionInfo{}, err
		}
		if after.SessionInfoUpdate == h.SessionInfoUpdate {
			return telemetry.SessionInfo{Revision: int(h.SessionInfoUpdate), YAML: yaml}, nil
		}
	}
	if last == nil {
		last = fmt.Errorf("%w: session info kept changing during read", telemetry.ErrConnect)
	}
	return telemetry.SessionInfo{}, last
}

// NextTick returns the next buffer whose tick is newer than the last one
// returned. A cleared status bit ends the stream with ErrDisconnected and a
// layout change ends it with ErrHeaderChanged.
func (s *Source) NextTick(ctx context.Context) (*telemetry.RawFrame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := s.read()
		if err != nil || f != nil {
			return f, err
		}
		if err := s.region.Wait(ctx, s.poll); err != nil {
			return nil, err
		}
	}
}

// read returns nil, nil when no new frame is ready.
func (s *Source) read() (*telemetry.RawFrame, error) {
	b := s.region.Bytes()
	for attempt := 0; attempt < maxReadAttempts; attempt++ {
		h, err := irsdk.ParseHeader(b)
		if err != nil {
			return nil, err
		}
		if !h.Connected() {
			s.logger.Info("simulator disconnected")
			return nil, telemetry.Closed(telemetry.ErrDisconnected)
		}
		if !h.SameLayout(s.header) {
			s.logger.Warn("variable header changed",
				log.Int("vars", int(h.NumVars)),
				log.Int("buf_len", int(h.BufLen)),
			)
			return nil, telemetry.Closed(telemetry.ErrHeaderChanged)
		}

		slot := h.Latest()
		vb := h.VarBuf[slot]
		tick := uint32(vb.TickCount)
		if s.hasLast && !telemetry.TickAfter(tick, s.last) {
			return nil, nil
		}
		start, end := int64(vb.BufOffset), int64(vb.BufOffset)+int64(h.BufLen)
		if start < 0 || end > int64(len(b)) {
			return nil, telemetry.FormatErrorf(telemetry.ErrTruncated, "buffer %d ends at %d, region is %d bytes", slot, end, len(b))
		}
		data := make([]byte, h.BufLen)
		copy(data, b[start:end])

		check, err := irsdk.ParseHeader(b)
		if err != nil {
			return nil, err
		}
		if check.VarBuf[slot].TickCount != vb.TickCount {
			continue // overwritten while copying
		}
		s.last, s.hasLast = tick, true
		return &telemetry.RawFrame{
			Tick:            tick,
			Time:            telemetry.TickTime(tick, s.tickRate),
			SessionRevision: int(h.SessionInfoUpdate),
			Received:        time.Now(),
			Data:            data,
		}, nil
	}
	s.logger.Debug("torn reads, waiting for next tick", log.Int("attempts", maxReadAttempts))
	return nil, nil
}

// Close unmaps the region.
func (s *Source) Close() error {
	return s.region.Close()
}
