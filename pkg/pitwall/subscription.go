package pitwall

import (
	"context"
	"time"

	"github.com/bft-labs/pitwall/internal/hub"
	"github.com/bft-labs/pitwall/pkg/decode"
	"github.com/bft-labs/pitwall/pkg/log"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// Frame is one decoded telemetry frame.
type Frame[T any] struct {
	Tick  uint32
	Epoch uint32
	Time  time.Duration
	Value T
}

// Subscription delivers frames decoded into T. Next must be called from a
// single goroutine; Close may be called from any.
type Subscription[T any] struct {
	cursor *hub.Cursor
	plan   *decode.Plan[T]
}

// Subscribe compiles mapping against the connection's header and attaches
// a new subscription at rate. A mapping that does not fit the header fails
// here with a *decode.SchemaError; nothing is attached and other
// subscriptions are unaffected.
func Subscribe[T any](c *Connection, mapping *decode.Mapping[T], rate telemetry.UpdateRate) (*Subscription[T], error) {
	plan, err := decode.Compile(mapping, c.source.Header())
	if err != nil {
		c.logger.Warn("subscription rejected", log.Err(err))
		return nil, err
	}
	cursor, err := c.hub.Subscribe(rate)
	if err != nil {
		return nil, err
	}
	return &Subscription[T]{cursor: cursor, plan: plan}, nil
}

// Next blocks for the next frame. Once the connection ends it returns an
// error wrapping telemetry.ErrSourceClosed; after Close it returns
// telemetry.ErrSubscriptionClosed.
func (s *Subscription[T]) Next(ctx context.Context) (Frame[T], error) {
	f, err := s.cursor.Next(ctx)
	if err != nil {
		return Frame[T]{}, err
	}
	v, err := s.plan.Decode(f.Data)
	if err != nil {
		return Frame[T]{}, err
	}
	return Frame[T]{Tick: f.Tick, Epoch: f.Epoch, Time: f.Time, Value: v}, nil
}

// Present reports whether the variable behind field exists in the source.
func (s *Subscription[T]) Present(field string) bool { return s.plan.Present(field) }

// Close detaches the subscription. Only this subscription's Next is woken.
func (s *Subscription[T]) Close() { s.cursor.Close() }

// ID returns the subscription id used in logs and stats.
func (s *Subscription[T]) ID() string { return s.cursor.ID() }

// Rate returns the effective update rate.
func (s *Subscription[T]) Rate() telemetry.UpdateRate { return s.cursor.Rate() }

// Stats returns the subscription's delivery counters.
func (s *Subscription[T]) Stats() Stats { return s.cursor.Stats() }

// RawSubscription delivers undecoded frames.
type RawSubscription struct {
	cursor *hub.Cursor
}

// SubscribeRaw attaches a subscription that receives frame buffers as-is.
func SubscribeRaw(c *Connection, rate telemetry.UpdateRate) (*RawSubscription, error) {
	cursor, err := c.hub.Subscribe(rate)
	if err != nil {
		return nil, err
	}
	return &RawSubscription{cursor: cursor}, nil
}

// Next blocks for the next frame. The frame must not be modified.
func (s *RawSubscription) Next(ctx context.Context) (*telemetry.RawFrame, error) {
	return s.cursor.Next(ctx)
}

func (s *RawSubscription) Close()       { s.cursor.Close() }
func (s *RawSubscription) ID() string   { return s.cursor.ID() }
func (s *RawSubscription) Stats() Stats { return s.cursor.Stats() }
