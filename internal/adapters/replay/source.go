// Package replay implements a paced telemetry source over an .ibt recording.
// It is the only source with transport controls: pause, seek and playback
// rate.
package replay

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/bft-labs/pitwall/internal/ports"
	"github.com/bft-labs/pitwall/pkg/ibt"
	"github.com/bft-labs/pitwall/pkg/log"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// Playback rate bounds. SetRate clamps into this range.
const (
	MinRate = 0.1
	MaxRate = 10.0
)

// Options configures a replay source.
type Options struct {
	// Rate is the initial playback multiplier. Zero means 1.
	Rate float64
	// StartPaused holds the first frame until Resume.
	StartPaused bool
	// Unpaced delivers frames as fast as they are read.
	Unpaced bool
	Logger  ports.Logger
}

// Source reads frames from an ibt.Reader at the recording's tick rate
// scaled by the playback multiplier.
type Source struct {
	reader  *ibt.Reader
	unpaced bool
	logger  ports.Logger

	mu       sync.Mutex
	pos      int
	epoch    uint32
	rate     float64
	paused   bool
	deadline time.Time // when the frame at pos is due; zero means now

	// ctrl wakes a waiting NextTick after any transport change.
	ctrl      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var (
	_ ports.Source    = (*Source)(nil)
	_ ports.Transport = (*Source)(nil)
)

// Open opens the recording at path.
func Open(path string, opts Options) (*Source, error) {
	r, err := ibt.Open(path)
	if err != nil {
		return nil, err
	}
	s, err := New(r, opts)
	if err != nil {
		r.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened reader. The source owns r from here on.
func New(r *ibt.Reader, opts Options) (*Source, error) {
	rate := opts.Rate
	if rate == 0 {
		rate = 1
	}
	rate, err := clampRate(rate)
	if err != nil {
		return nil, err
	}
	s := &Source{
		reader:  r,
		unpaced: opts.Unpaced,
		logger:  log.OrNoop(opts.Logger),
		rate:    rate,
		paused:  opts.StartPaused,
		ctrl:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	s.logger.Info("replay opened",
		log.Int("frames", r.Len()),
		log.Float64("tick_rate", r.TickRate()),
		log.Int("variables", r.Variables().Len()),
	)
	return s, nil
}

func (s *Source) Header() *telemetry.VariableHeader { return s.reader.Variables() }
func (s *Source) TickRate() float64                 { return s.reader.TickRate() }

// SessionInfo returns the document stored in the file. It never changes.
func (s *Source) SessionInfo() (telemetry.SessionInfo, error) {
	return telemetry.SessionInfo{
		Revision: s.reader.SessionRevision(),
		YAML:     s.reader.SessionYAML(),
	}, nil
}

// NextTick returns the frame at the current position once it is due.
// At the end of the file it returns telemetry.ErrSourceClosed wrapping
// ErrEndOfReplay and io.EOF.
func (s *Source) NextTick(ctx context.Context) (*telemetry.RawFrame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s.mu.Lock()
		select {
		case <-s.done:
			s.mu.Unlock()
			return nil, telemetry.ErrSourceClosed
		default:
		}
		if s.pos >= s.reader.Len() {
			s.mu.Unlock()
			return nil, telemetry.Closed(fmt.Errorf("%w: %w", telemetry.ErrEndOfReplay, io.EOF))
		}
		if s.paused {
			s.mu.Unlock()
			if err := s.wait(ctx, nil); err != nil {
				return nil, err
			}
			continue
		}

		now := time.Now()
		if !s.unpaced {
			if s.deadline.IsZero() {
				s.deadline = now
			}
			if wait := s.deadline.Sub(now); wait > 0 {
				s.mu.Unlock()
				t := time.NewTimer(wait)
				err := s.wait(ctx, t.C)
				t.Stop()
				if err != nil {
					return nil, err
				}
				continue
			}
			s.deadline = s.deadline.Add(s.interval())
			// After a long stall resync instead of bursting to catch up.
			if now.Sub(s.deadline) > s.interval() {
				s.deadline = now.Add(s.interval())
			}
		}
		i, epoch := s.pos, s.epoch
		s.pos++
		s.mu.Unlock()

		data, err := s.reader.ReadFrame(i, nil)
		if err != nil {
			return nil, err
		}
		tick := uint32(i)
		return &telemetry.RawFrame{
			Tick:            tick,
			Epoch:           epoch,
			Time:            telemetry.TickTime(tick, s.reader.TickRate()),
			SessionRevision: s.reader.SessionRevision(),
			Received:        now,
			Data:            data,
		}, nil
	}
}

// wait blocks until a transport change, the timer, cancellation or Close.
func (s *Source) wait(ctx context.Context, timer <-chan time.Time) error {
	select {
	case <-s.ctrl:
		return nil
	case <-timer:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return telemetry.ErrSourceClosed
	}
}

// interval is the wall-clock gap between frames. Callers hold s.mu.
func (s *Source) interval() time.Duration {
	return time.Duration(float64(time.Second) / (s.reader.TickRate() * s.rate))
}

func (s *Source) signal() {
	select {
	case s.ctrl <- struct{}{}:
	default:
	}
}

// Pause holds playback at the current position.
func (s *Source) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	s.signal()
	s.logger.Debug("replay paused", log.Int("position", s.Position()))
}

// Resume continues playback. The next frame is due immediately.
func (s *Source) Resume() {
	s.mu.Lock()
	s.paused = false
	s.deadline = time.Time{}
	s.mu.Unlock()
	s.signal()
	s.logger.Debug("replay resumed")
}

// Paused reports whether playback is held.
func (s *Source) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// Seek moves playback to tick and starts a new epoch, so subscribers accept
// the lower tick numbers that follow.
func (s *Source) Seek(tick int) error {
	n := s.reader.Len()
	if tick < 0 || tick >= n {
		return fmt.Errorf("%w: tick %d, recording has %d frames", telemetry.ErrSeekOutOfRange, tick, n)
	}
	s.mu.Lock()
	s.pos = tick
	s.epoch++
	s.deadline = time.Time{}
	epoch := s.epoch
	s.mu.Unlock()
	s.signal()
	s.logger.Debug("replay seek", log.Int("position", tick), log.Uint64("epoch", uint64(epoch)))
	return nil
}

// SetRate changes the playback multiplier, clamped to [MinRate, MaxRate].
func (s *Source) SetRate(mult float64) error {
	rate, err := clampRate(mult)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rate = rate
	s.deadline = time.Time{}
	s.mu.Unlock()
	s.signal()
	s.logger.Debug("replay rate changed", log.Float64("rate", rate))
	return nil
}

// Rate returns the playback multiplier.
func (s *Source) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

// Position returns the index of the next frame to be delivered.
func (s *Source) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Len returns the number of frames in the recording.
func (s *Source) Len() int { return s.reader.Len() }

// Reader exposes the underlying file, e.g. to copy its disk header.
func (s *Source) Reader() *ibt.Reader { return s.reader }

// Close releases the file. A blocked NextTick returns ErrSourceClosed.
func (s *Source) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.reader.Close()
	})
	return err
}

func clampRate(mult float64) (float64, error) {
	if math.IsNaN(mult) || mult <= 0 {
		return 0, fmt.Errorf("%w: %v", telemetry.ErrInvalidRate, mult)
	}
	return min(max(mult, MinRate), MaxRate), nil
}
