package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/pitwall/internal/domain"
	"github.com/bft-labs/pitwall/internal/ports"
)

// ShutdownTimeout is the maximum time Close waits for the producer to exit.
const ShutdownTimeout = 30 * time.Second

// State represents the lifecycle state of a connection's producer.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateCrashed
}

// Lifecycle is the state machine for a connection's producer. A connection
// is single-use: once the producer has started, reaching Stopped or Crashed
// ends it for good and closes Done.
type Lifecycle struct {
	mu       sync.RWMutex
	state    State
	started  bool
	cause    error
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	done     chan struct{}
	logger   ports.Logger
	observer Observer
}

// Observer is called when the lifecycle state changes.
type Observer interface {
	OnStateChange(previous, current State, reason string)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(previous, current State, reason string)

func (f ObserverFunc) OnStateChange(previous, current State, reason string) {
	f(previous, current, reason)
}

// NewLifecycle creates a lifecycle in StateStopped. observer may be nil.
func NewLifecycle(logger ports.Logger, observer Observer) *Lifecycle {
	return &Lifecycle{
		state:    StateStopped,
		done:     make(chan struct{}),
		logger:   logger,
		observer: observer,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to transition to a new state.
// Returns an error if the transition is not valid.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	return l.transition(newState, reason, nil)
}

// Finish moves to a terminal state and records cause, the error reported
// by Err. A nil cause means a clean stop.
func (l *Lifecycle) Finish(newState State, reason string, cause error) error {
	return l.transition(newState, reason, cause)
}

func (l *Lifecycle) transition(newState State, reason string, cause error) error {
	l.mu.Lock()
	oldState := l.state

	switch oldState {
	case StateStopped:
		if newState != StateStarting || l.started {
			l.mu.Unlock()
			return domain.ErrNotRunning
		}
	case StateStarting:
		if newState != StateRunning && newState != StateCrashed && newState != StateStopping {
			l.mu.Unlock()
			return domain.ErrAlreadyRunning
		}
	case StateRunning:
		// Running may stop on its own when the source ends.
		if newState != StateStopping && newState != StateStopped && newState != StateCrashed {
			l.mu.Unlock()
			return domain.ErrAlreadyRunning
		}
	case StateStopping:
		if newState != StateStopped && newState != StateCrashed {
			l.mu.Unlock()
			return domain.ErrAlreadyRunning
		}
	case StateCrashed:
		l.mu.Unlock()
		return domain.ErrNotRunning
	}

	l.state = newState
	if newState == StateStarting {
		l.started = true
	}
	terminal := newState.Terminal()
	if terminal {
		l.cause = cause
	}
	l.mu.Unlock()

	if terminal {
		close(l.done)
	}

	if l.observer != nil {
		l.observer.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		ports.String("from", oldState.String()),
		ports.String("to", newState.String()),
		ports.String("reason", reason),
	)

	return nil
}

// Done is closed once the lifecycle reaches a terminal state after starting.
func (l *Lifecycle) Done() <-chan struct{} { return l.done }

// Err returns the cause recorded by Finish.
func (l *Lifecycle) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cause
}

// CanStart returns true if the producer has never been started.
func (l *Lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateStopped && !l.started
}

// CanStop returns true if Stop() can be called.
func (l *Lifecycle) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRunning || l.state == StateStarting
}

// SetCancel stores the cancel function for graceful shutdown.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel triggers graceful shutdown.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Go runs fn as a tracked worker.
func (l *Lifecycle) Go(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
}

// WaitWithTimeout waits for all workers to finish with a timeout.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		l.logger.Warn("shutdown timeout, forcing exit",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
