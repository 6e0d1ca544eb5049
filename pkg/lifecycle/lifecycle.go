package lifecycle

// State represents the lifecycle state of a connection.
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

// Terminal reports whether the state ends the connection.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateCrashed
}

// Event describes one state transition.
type Event struct {
	Previous State
	Current  State
	Reason   string
}

// Handler receives state transitions. It is called synchronously from the
// goroutine making the transition and must return quickly.
type Handler interface {
	OnStateChange(Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(Event)

func (f HandlerFunc) OnStateChange(e Event) { f(e) }
