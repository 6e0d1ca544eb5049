package hub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/pitwall/internal/domain"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// Cursor is one subscriber's position in the frame stream. Next must be
// called from a single goroutine; Stats and Close are safe from any.
type Cursor struct {
	hub      *Hub
	id       string
	rate     telemetry.UpdateRate
	interval time.Duration
	created  time.Time

	// owned by the Next caller
	seq  uint64
	last *telemetry.RawFrame

	delivered   atomic.Uint64
	overwritten atomic.Uint64
	throttled   atomic.Uint64
	lastTick    atomic.Uint32

	done      chan struct{}
	closeOnce sync.Once
}

// ID returns the subscription id.
func (c *Cursor) ID() string { return c.id }

// Rate returns the normalised update rate.
func (c *Cursor) Rate() telemetry.UpdateRate { return c.rate }

// Next blocks until a frame newer than the last delivered one passes the
// rate gate. Frames published while the caller was busy are skipped and
// counted as overwritten.
func (c *Cursor) Next(ctx context.Context) (*telemetry.RawFrame, error) {
	for {
		if closedChan(c.done) {
			return nil, telemetry.ErrSubscriptionClosed
		}
		st, res := c.hub.frames.wait(ctx, c.done, c.seq)
		switch res {
		case waitClosed:
			return nil, telemetry.Closed(st.cause)
		case waitCanceled:
			return nil, ctx.Err()
		case waitDone:
			return nil, telemetry.ErrSubscriptionClosed
		}

		if skipped := st.seq - c.seq - 1; skipped > 0 {
			c.overwritten.Add(skipped)
			c.hub.metrics.FramesOverwritten(skipped)
		}
		c.seq = st.seq

		f := st.value
		if !c.admit(f) {
			c.throttled.Add(1)
			c.hub.metrics.FrameThrottled()
			continue
		}
		c.last = f
		c.delivered.Add(1)
		c.lastTick.Store(f.Tick)
		c.hub.metrics.FrameDelivered()
		return f, nil
	}
}

// admit applies ordering and the rate gate. A new epoch resets both.
func (c *Cursor) admit(f *telemetry.RawFrame) bool {
	prev := c.last
	if prev == nil || f.Epoch != prev.Epoch {
		return true
	}
	if !f.After(prev) {
		return false
	}
	return c.interval == 0 || f.Time-prev.Time >= c.interval
}

// Close releases the cursor. A blocked Next returns ErrSubscriptionClosed.
// Other cursors are unaffected.
func (c *Cursor) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.hub.unregister(c)
	})
}

// Stats returns the cursor's counters.
func (c *Cursor) Stats() domain.SubscriberStats {
	return domain.SubscriberStats{
		ID:          c.id,
		Rate:        c.rate.String(),
		Delivered:   c.delivered.Load(),
		Overwritten: c.overwritten.Load(),
		Throttled:   c.throttled.Load(),
		LastTick:    c.lastTick.Load(),
		Created:     c.created,
	}
}

// SessionCursor follows session-info revisions. It emits a snapshot only
// when its revision is greater than the last one it returned.
type SessionCursor struct {
	hub     *Hub
	seq     uint64
	lastRev int
	started bool

	done      chan struct{}
	closeOnce sync.Once
}

// Next blocks until a newer revision is published.
func (c *SessionCursor) Next(ctx context.Context) (*domain.SessionSnapshot, error) {
	for {
		if closedChan(c.done) {
			return nil, telemetry.ErrSubscriptionClosed
		}
		st, res := c.hub.sessions.wait(ctx, c.done, c.seq)
		switch res {
		case waitClosed:
			return nil, telemetry.Closed(st.cause)
		case waitCanceled:
			return nil, ctx.Err()
		case waitDone:
			return nil, telemetry.ErrSubscriptionClosed
		}
		c.seq = st.seq

		snap := st.value
		if c.started && snap.Info.Revision <= c.lastRev {
			continue
		}
		c.started = true
		c.lastRev = snap.Info.Revision
		return snap, nil
	}
}

// Close unblocks a pending Next.
func (c *SessionCursor) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func closedChan(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
