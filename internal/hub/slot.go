package hub

import (
	"context"
	"sync"
	"sync/atomic"
)

// state is an immutable view of a slot. A publish replaces the whole state
// and closes the previous state's next channel, waking every waiter.
type state[V any] struct {
	value  V
	seq    uint64 // number of publishes so far; 0 means no value yet
	closed bool
	cause  error
	next   chan struct{}
}

// slot holds the latest value of one stream. Readers never lock.
type slot[V any] struct {
	mu  sync.Mutex
	cur atomic.Pointer[state[V]]
}

func newSlot[V any]() *slot[V] {
	s := &slot[V]{}
	s.cur.Store(&state[V]{next: make(chan struct{})})
	return s
}

func (s *slot[V]) load() *state[V] { return s.cur.Load() }

// publish replaces the value. It returns false once the slot is closed.
func (s *slot[V]) publish(v V) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cur.Load()
	if old.closed {
		return old.seq, false
	}
	s.cur.Store(&state[V]{value: v, seq: old.seq + 1, next: make(chan struct{})})
	close(old.next)
	return old.seq + 1, true
}

// close marks the slot terminal. The last value stays readable.
func (s *slot[V]) close(cause error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.cur.Load()
	if old.closed {
		return false
	}
	s.cur.Store(&state[V]{value: old.value, seq: old.seq, closed: true, cause: cause, next: old.next})
	close(old.next)
	return true
}

// waitResult tells a closed slot apart from a caller that gave up.
type waitResult int

const (
	waitValue waitResult = iota
	waitClosed
	waitCanceled
	waitDone
)

// wait returns the first state whose seq is greater than after. A pending
// value is returned even if the slot closed after publishing it.
func (s *slot[V]) wait(ctx context.Context, done <-chan struct{}, after uint64) (*state[V], waitResult) {
	for {
		st := s.cur.Load()
		if st.seq > after {
			return st, waitValue
		}
		if st.closed {
			return st, waitClosed
		}
		select {
		case <-st.next:
		case <-ctx.Done():
			return nil, waitCanceled
		case <-done:
			return nil, waitDone
		}
	}
}
