package app

import (
	"context"
	"time"

	"github.com/bft-labs/pitwall/internal/domain"
	"github.com/bft-labs/pitwall/internal/hub"
	"github.com/bft-labs/pitwall/internal/metrics"
	"github.com/bft-labs/pitwall/internal/ports"
	"github.com/bft-labs/pitwall/pkg/session"
)

// Producer is the single writer of a hub. It pulls frames from a source,
// refreshes the session snapshot when the revision moves and publishes
// each frame.
type Producer struct {
	source  ports.Source
	hub     *hub.Hub
	metrics *metrics.Metrics
	logger  ports.Logger

	revision   int
	hasSession bool
}

// NewProducer wires a source to a hub. m may be nil.
func NewProducer(source ports.Source, h *hub.Hub, m *metrics.Metrics, logger ports.Logger) *Producer {
	return &Producer{
		source:  source,
		hub:     h,
		metrics: m,
		logger:  logger,
	}
}

// PublishSession reads the session info from the source, parses it once and
// publishes the snapshot. An empty document is recorded but not published.
// A parse failure is carried in the snapshot rather than returned.
func (p *Producer) PublishSession() error {
	info, err := p.source.SessionInfo()
	if err != nil {
		return err
	}
	p.revision = info.Revision
	p.hasSession = true
	if info.Empty() {
		p.logger.Debug("source has no session info", ports.Revision(info.Revision))
		return nil
	}

	snap := &domain.SessionSnapshot{Info: info}
	snap.Document, snap.ParseErr = session.Parse(info.YAML)
	if snap.ParseErr != nil {
		p.logger.Warn("session info did not parse",
			ports.Revision(info.Revision),
			ports.Err(snap.ParseErr),
		)
	}
	p.hub.PublishSession(snap)
	return nil
}

// Run executes the producer loop until the source ends, ctx is canceled or
// the hub is closed. The returned error is whatever stopped NextTick.
func (p *Producer) Run(ctx context.Context) error {
	for {
		start := time.Now()
		f, err := p.source.NextTick(ctx)
		if err != nil {
			return err
		}
		p.metrics.ObserveRead(time.Since(start))

		if !p.hasSession || f.SessionRevision != p.revision {
			if err := p.PublishSession(); err != nil {
				// Frames keep flowing; the next revision change retries.
				p.logger.Warn("session refresh failed", ports.Revision(f.SessionRevision), ports.Err(err))
				p.revision = f.SessionRevision
			}
		}

		if !p.hub.Publish(f) {
			return nil
		}
	}
}
