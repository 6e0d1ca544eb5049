package telemetry

import (
	"errors"
	"fmt"
)

// Class errors. Every error produced by pitwall wraps exactly one of these.
var (
	// ErrConnect indicates the live shared-memory feed could not be attached.
	ErrConnect = errors.New("pitwall: connect failed")

	// ErrReplay indicates a replay file could not be opened or controlled.
	ErrReplay = errors.New("pitwall: replay failed")

	// ErrFormat indicates a structural violation of the binary layout.
	ErrFormat = errors.New("pitwall: invalid telemetry format")

	// ErrSchema indicates a field mapping could not be validated against a header.
	ErrSchema = errors.New("pitwall: schema validation failed")

	// ErrSourceClosed is the terminal completion of every frame and session stream.
	// It is an expected end state, not a failure.
	ErrSourceClosed = errors.New("pitwall: source closed")
)

// Connect errors.
var (
	// ErrNoSessionFound indicates the simulator's mapping is absent or not connected.
	ErrNoSessionFound = fmt.Errorf("%w: no live session found", ErrConnect)

	// ErrUnsupportedPlatform indicates live telemetry is not available on this OS.
	ErrUnsupportedPlatform = fmt.Errorf("%w: live telemetry unsupported on this platform", ErrConnect)
)

// Replay errors.
var (
	ErrSeekOutOfRange = fmt.Errorf("%w: seek target out of range", ErrReplay)
	ErrInvalidRate    = fmt.Errorf("%w: playback rate must be positive", ErrReplay)
	ErrNotReplay      = fmt.Errorf("%w: source has no replay transport", ErrReplay)
)

// Format error kinds. Use them with errors.Is against a *FormatError.
var (
	ErrCorruptHeader      = fmt.Errorf("%w: corrupt header", ErrFormat)
	ErrUnsupportedVersion = fmt.Errorf("%w: unsupported version", ErrFormat)
	ErrTruncated          = fmt.Errorf("%w: truncated", ErrFormat)
)

// Schema error kinds. pkg/decode reports them through decode.SchemaError.
var (
	ErrMissingRequiredVariable      = fmt.Errorf("%w: missing required variable", ErrSchema)
	ErrTypeMismatch                 = fmt.Errorf("%w: type mismatch", ErrSchema)
	ErrCalculatedFieldOrderingCycle = fmt.Errorf("%w: calculated field ordering cycle", ErrSchema)
	ErrUnknownDependency            = fmt.Errorf("%w: unknown calculated dependency", ErrSchema)
	ErrInvalidMapping               = fmt.Errorf("%w: invalid mapping", ErrSchema)
	ErrPlanStale                    = fmt.Errorf("%w: frame does not match plan header", ErrSchema)
)

// Terminal causes carried by ErrSourceClosed.
var (
	ErrDisconnected  = errors.New("pitwall: simulator disconnected")
	ErrHeaderChanged = errors.New("pitwall: variable header changed")
	ErrEndOfReplay   = errors.New("pitwall: end of replay")
)

// ErrInvalidUpdateRate is returned when a Max rate is not a positive finite number.
var ErrInvalidUpdateRate = errors.New("pitwall: update rate must be positive")

// ErrSubscriptionClosed is returned by Next after the subscription itself
// was closed. It does not imply the source ended.
var ErrSubscriptionClosed = errors.New("pitwall: subscription closed")

// FormatError describes a structural violation found while parsing a header,
// a variable table or a frame record.
type FormatError struct {
	Kind   error // ErrCorruptHeader, ErrUnsupportedVersion or ErrTruncated
	Detail string
}

// FormatErrorf builds a FormatError of the given kind.
func FormatErrorf(kind error, format string, args ...any) *FormatError {
	return &FormatError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func (e *FormatError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Detail
}

func (e *FormatError) Unwrap() error { return e.Kind }

type closedError struct {
	cause error
}

// Closed wraps cause so that errors.Is reports both ErrSourceClosed and the cause.
// A nil cause returns ErrSourceClosed itself.
func Closed(cause error) error {
	if cause == nil {
		return ErrSourceClosed
	}
	if errors.Is(cause, ErrSourceClosed) {
		return cause
	}
	return &closedError{cause: cause}
}

func (e *closedError) Error() string {
	return ErrSourceClosed.Error() + ": " + e.cause.Error()
}

func (e *closedError) Unwrap() []error { return []error{ErrSourceClosed, e.cause} }
