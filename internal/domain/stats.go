package domain

import "time"

// SubscriberStats counts what one subscription has seen.
type SubscriberStats struct {
	ID   string
	Rate string

	// Delivered is the number of frames returned to the consumer.
	Delivered uint64

	// Overwritten is the number of frames the consumer never saw because a
	// newer frame replaced them before it asked again.
	Overwritten uint64

	// Throttled is the number of frames observed but withheld by the rate gate.
	Throttled uint64

	// LastTick is the tick of the last delivered frame.
	LastTick uint32

	Created time.Time
}

// Dropped is the total number of published frames the consumer did not receive.
func (s SubscriberStats) Dropped() uint64 {
	return s.Overwritten + s.Throttled
}

// HubStats is a point-in-time snapshot of a hub.
type HubStats struct {
	Published        uint64
	SessionRevisions uint64
	LastTick         uint32
	Closed           bool
	Subscribers      []SubscriberStats
}

// Active returns the number of registered subscribers.
func (h HubStats) Active() int {
	return len(h.Subscribers)
}
