// Package hub fans frames and session-info revisions out from a single
// producer to any number of subscribers.
//
// The hub keeps only the latest value of each stream. A subscriber that
// falls behind skips straight to the newest frame; nothing is queued, so a
// slow consumer never holds memory or delays the producer or its peers.
package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/pitwall/internal/domain"
	"github.com/bft-labs/pitwall/internal/metrics"
	"github.com/bft-labs/pitwall/internal/ports"
	"github.com/bft-labs/pitwall/pkg/log"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// Hub is safe for one publishing goroutine and any number of readers.
type Hub struct {
	frames   *slot[*telemetry.RawFrame]
	sessions *slot[*domain.SessionSnapshot]

	tickRate float64
	subs     sync.Map // id -> *Cursor

	published atomic.Uint64
	revisions atomic.Uint64

	done      chan struct{}
	closeOnce sync.Once

	metrics *metrics.Metrics
	logger  ports.Logger
}

// New creates a hub for a source running at tickRate Hz. m may be nil.
func New(tickRate float64, m *metrics.Metrics, logger ports.Logger) *Hub {
	return &Hub{
		frames:   newSlot[*telemetry.RawFrame](),
		sessions: newSlot[*domain.SessionSnapshot](),
		tickRate: tickRate,
		done:     make(chan struct{}),
		metrics:  m,
		logger:   log.OrNoop(logger),
	}
}

// Publish makes f the latest frame. f must not be modified afterwards.
// It returns false once the hub is closed.
func (h *Hub) Publish(f *telemetry.RawFrame) bool {
	if _, ok := h.frames.publish(f); !ok {
		return false
	}
	h.published.Add(1)
	h.metrics.FramePublished()
	return true
}

// PublishSession makes s the latest session snapshot.
func (h *Hub) PublishSession(s *domain.SessionSnapshot) bool {
	if _, ok := h.sessions.publish(s); !ok {
		return false
	}
	h.revisions.Add(1)
	h.metrics.SessionRevision()
	h.logger.Debug("session published", ports.Revision(s.Info.Revision))
	return true
}

// Close ends both streams. Readers drain the value they have not seen yet,
// then receive telemetry.Closed(cause). Only the first call has effect.
func (h *Hub) Close(cause error) {
	h.closeOnce.Do(func() {
		h.frames.close(cause)
		h.sessions.close(cause)
		close(h.done)
		if cause != nil {
			h.logger.Info("hub closed", ports.Err(cause))
		} else {
			h.logger.Debug("hub closed")
		}
	})
}

// Done is closed when the hub closes.
func (h *Hub) Done() <-chan struct{} { return h.done }

// Cause returns the close cause, or nil while open or after a clean close.
func (h *Hub) Cause() error {
	return h.frames.load().cause
}

// Latest returns the most recent frame, if any.
func (h *Hub) Latest() (*telemetry.RawFrame, bool) {
	st := h.frames.load()
	return st.value, st.seq > 0
}

// LatestSession returns the most recent session snapshot, if any.
func (h *Hub) LatestSession() (*domain.SessionSnapshot, bool) {
	st := h.sessions.load()
	return st.value, st.seq > 0
}

// Subscribe registers a frame cursor. A cursor created mid-stream starts
// at the current frame. The rate is normalised against the tick rate.
func (h *Hub) Subscribe(rate telemetry.UpdateRate) (*Cursor, error) {
	if err := rate.Validate(); err != nil {
		return nil, err
	}
	st := h.frames.load()
	if st.closed {
		return nil, telemetry.Closed(st.cause)
	}
	rate = rate.Normalize(h.tickRate)
	start := st.seq
	if start > 0 {
		start--
	}
	c := &Cursor{
		hub:      h,
		id:       uuid.NewString(),
		rate:     rate,
		interval: rate.Interval(),
		seq:      start,
		done:     make(chan struct{}),
		created:  time.Now(),
	}
	h.subs.Store(c.id, c)
	h.metrics.SubscriberAdded()
	h.logger.Debug("subscriber added", ports.String("subscription", c.id), ports.String("rate", rate.String()))
	return c, nil
}

// Sessions returns an independent session cursor. Its first Next returns
// the current snapshot, if there is one.
func (h *Hub) Sessions() *SessionCursor {
	return &SessionCursor{hub: h, done: make(chan struct{})}
}

func (h *Hub) unregister(c *Cursor) {
	if _, ok := h.subs.LoadAndDelete(c.id); ok {
		h.metrics.SubscriberRemoved()
		h.logger.Debug("subscriber removed", ports.String("subscription", c.id))
	}
}

// Stats returns a snapshot of the hub and every registered cursor.
func (h *Hub) Stats() domain.HubStats {
	st := h.frames.load()
	out := domain.HubStats{
		Published:        h.published.Load(),
		SessionRevisions: h.revisions.Load(),
		Closed:           st.closed,
	}
	if st.value != nil {
		out.LastTick = st.value.Tick
	}
	h.subs.Range(func(_, v any) bool {
		out.Subscribers = append(out.Subscribers, v.(*Cursor).Stats())
		return true
	})
	return out
}
