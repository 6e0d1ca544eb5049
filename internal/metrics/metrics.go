// Package metrics holds the Prometheus collectors for the hub and the
// producer loop, and the HTTP handler the CLI serves them from.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pitwall"

// Metrics is the set of collectors shared by one or more connections. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	framesPublished   prometheus.Counter
	framesDelivered   prometheus.Counter
	framesOverwritten prometheus.Counter
	framesThrottled   prometheus.Counter
	subscribers       prometheus.Gauge
	sessionRevisions  prometheus.Counter
	sourceRead        prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered. Collectors already registered by an earlier
// connection on the same registry are reused, so counters accumulate across
// reconnects.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		framesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "hub", Name: "frames_published_total",
			Help: "Frames published by the source into the hub.",
		}),
		framesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "hub", Name: "frames_delivered_total",
			Help: "Frames handed to subscribers.",
		}),
		framesOverwritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "hub", Name: "frames_overwritten_total",
			Help: "Frames replaced by a newer frame before a subscriber read them.",
		}),
		framesThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "hub", Name: "frames_throttled_total",
			Help: "Frames withheld by a subscriber's update rate.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "hub", Name: "subscribers",
			Help: "Active frame subscriptions.",
		}),
		sessionRevisions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session", Name: "revisions_total",
			Help: "Session-info revisions published.",
		}),
		sourceRead: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "source", Name: "read_seconds",
			Help:    "Time spent copying one frame out of the source.",
			Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3, 1e-2},
		}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.framesPublished, err = register(reg, m.framesPublished); err != nil {
		return nil, err
	}
	if m.framesDelivered, err = register(reg, m.framesDelivered); err != nil {
		return nil, err
	}
	if m.framesOverwritten, err = register(reg, m.framesOverwritten); err != nil {
		return nil, err
	}
	if m.framesThrottled, err = register(reg, m.framesThrottled); err != nil {
		return nil, err
	}
	if m.subscribers, err = register(reg, m.subscribers); err != nil {
		return nil, err
	}
	if m.sessionRevisions, err = register(reg, m.sessionRevisions); err != nil {
		return nil, err
	}
	if m.sourceRead, err = register(reg, m.sourceRead); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *Metrics) FramePublished() {
	if m != nil {
		m.framesPublished.Inc()
	}
}

func (m *Metrics) FrameDelivered() {
	if m != nil {
		m.framesDelivered.Inc()
	}
}

func (m *Metrics) FramesOverwritten(n uint64) {
	if m != nil && n > 0 {
		m.framesOverwritten.Add(float64(n))
	}
}

func (m *Metrics) FrameThrottled() {
	if m != nil {
		m.framesThrottled.Inc()
	}
}

func (m *Metrics) SubscriberAdded() {
	if m != nil {
		m.subscribers.Inc()
	}
}

func (m *Metrics) SubscriberRemoved() {
	if m != nil {
		m.subscribers.Dec()
	}
}

func (m *Metrics) SessionRevision() {
	if m != nil {
		m.sessionRevisions.Inc()
	}
}

func (m *Metrics) ObserveRead(d time.Duration) {
	if m != nil {
		m.sourceRead.Observe(d.Seconds())
	}
}
