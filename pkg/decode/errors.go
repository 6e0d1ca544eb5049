package decode

import (
	"fmt"
	"strings"
)

// SchemaError reports why a Mapping could not be compiled against a header.
// Kind is one of the telemetry schema sentinels, so errors.Is works against
// telemetry.ErrMissingRequiredVariable, telemetry.ErrTypeMismatch and friends.
type SchemaError struct {
	Kind     error
	Field    string
	Variable string
	Want     string
	Got      string
	Cycle    []string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	if e.Variable != "" {
		fmt.Fprintf(&b, " (variable %q)", e.Variable)
	}
	if e.Want != "" || e.Got != "" {
		fmt.Fprintf(&b, ": want %s, got %s", e.Want, e.Got)
	}
	if len(e.Cycle) > 0 {
		fmt.Fprintf(&b, ": %s", strings.Join(e.Cycle, " -> "))
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error { return e.Kind }
