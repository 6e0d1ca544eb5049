package decode

import (
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// Kind selects how a field is resolved against the variable header.
type Kind int

const (
	// Required fields fail compilation when the variable is absent or incompatible.
	Required Kind = iota
	// Optional fields stay at their zero value when the variable is absent.
	Optional
	// Fallback fields yield a literal on every frame when the variable is absent.
	Fallback
	// Calculated fields are computed from already-decoded fields.
	Calculated
	// Skipped fields are never validated or decoded.
	Skipped
)

func (k Kind) String() string {
	switch k {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case Fallback:
		return "fallback"
	case Calculated:
		return "calculated"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// FieldInfo is the descriptor view of one mapping entry.
type FieldInfo struct {
	Name    string
	Source  string
	Kind    Kind
	Depends []string
}

// Field is one entry of a Mapping for destination type T. Fields are built
// with Var, Array, Calculated and the typed helpers below.
type Field[T any] interface {
	Info() FieldInfo
	compile(h *telemetry.VariableHeader) (step[T], error)
}

// step is the compiled form of a field. A nil apply means nothing is
// written for this field on decode.
type step[T any] struct {
	name    string
	present bool
	apply   func(dst *T, data []byte)
}

// resolve looks up the source variable for kinds that may tolerate its absence.
func resolve(h *telemetry.VariableHeader, name, source string, kind Kind) (telemetry.Variable, bool, error) {
	v, ok := h.Lookup(source)
	if !ok && kind == Required {
		return v, false, &SchemaError{Kind: telemetry.ErrMissingRequiredVariable, Field: name, Variable: source}
	}
	return v, ok, nil
}

// ScalarField decodes a single value of type V.
type ScalarField[T any, V Value] struct {
	name    string
	source  string
	kind    Kind
	literal V
	set     func(*T, V)
}

// Var maps the variable source onto a scalar field. An empty source uses name.
func Var[T any, V Value](name, source string, set func(*T, V)) *ScalarField[T, V] {
	if source == "" {
		source = name
	}
	return &ScalarField[T, V]{name: name, source: source, kind: Required, set: set}
}

// Required marks the field as required. This is the default.
func (f *ScalarField[T, V]) Required() *ScalarField[T, V] { f.kind = Required; return f }

// Optional leaves the field at its zero value when the variable is absent.
func (f *ScalarField[T, V]) Optional() *ScalarField[T, V] { f.kind = Optional; return f }

// Fallback yields v on every frame when the variable is absent.
func (f *ScalarField[T, V]) Fallback(v V) *ScalarField[T, V] {
	f.kind = Fallback
	f.literal = v
	return f
}

// Skip excludes the field from validation and decoding.
func (f *ScalarField[T, V]) Skip() *ScalarField[T, V] { f.kind = Skipped; return f }

func (f *ScalarField[T, V]) Info() FieldInfo {
	return FieldInfo{Name: f.name, Source: f.source, Kind: f.kind}
}

func (f *ScalarField[T, V]) compile(h *telemetry.VariableHeader) (step[T], error) {
	st := step[T]{name: f.name}
	if f.kind == Skipped {
		return st, nil
	}
	v, ok, err := resolve(h, f.name, f.source, f.kind)
	if err != nil {
		return st, err
	}
	set := f.set
	if !ok {
		if f.kind == Fallback {
			lit := f.literal
			st.apply = func(dst *T, _ []byte) { set(dst, lit) }
		}
		return st, nil
	}
	read, err := scalarReader[V](v)
	if err != nil {
		err.(*SchemaError).Field = f.name
		return st, err
	}
	st.present = true
	st.apply = func(dst *T, data []byte) { set(dst, read(data)) }
	return st, nil
}

// ArrayField decodes a fixed-length array variable such as CarIdxLap.
type ArrayField[T any, V Elem] struct {
	name    string
	source  string
	n       int
	kind    Kind
	literal []V
	set     func(*T, []V)
}

// Array maps an n-element variable onto a slice field. The variable's count
// must equal n.
func Array[T any, V Elem](name, source string, n int, set func(*T, []V)) *ArrayField[T, V] {
	if source == "" {
		source = name
	}
	return &ArrayField[T, V]{name: name, source: source, n: n, kind: Required, set: set}
}

func (f *ArrayField[T, V]) Required() *ArrayField[T, V] { f.kind = Required; return f }
func (f *ArrayField[T, V]) Optional() *ArrayField[T, V] { f.kind = Optional; return f }
func (f *ArrayField[T, V]) Skip() *ArrayField[T, V]     { f.kind = Skipped; return f }

// Fallback yields a copy of v on every frame when the variable is absent.
func (f *ArrayField[T, V]) Fallback(v []V) *ArrayField[T, V] {
	f.kind = Fallback
	f.literal = append([]V(nil), v...)
	return f
}

func (f *ArrayField[T, V]) Info() FieldInfo {
	return FieldInfo{Name: f.name, Source: f.source, Kind: f.kind}
}

func (f *ArrayField[T, V]) compile(h *telemetry.VariableHeader) (step[T], error) {
	st := step[T]{name: f.name}
	if f.kind == Skipped {
		return st, nil
	}
	v, ok, err := resolve(h, f.name, f.source, f.kind)
	if err != nil {
		return st, err
	}
	set := f.set
	if !ok {
		if f.kind == Fallback {
			lit := f.literal
			st.apply = func(dst *T, _ []byte) { set(dst, append([]V(nil), lit...)) }
		}
		return st, nil
	}
	read, err := arrayReader[V](v, f.n)
	if err != nil {
		err.(*SchemaError).Field = f.name
		return st, err
	}
	st.present = true
	st.apply = func(dst *T, data []byte) { set(dst, read(data)) }
	return st, nil
}

// CalcField computes a value from sibling fields after they are decoded.
type CalcField[T any] struct {
	name string
	deps []string
	fn   func(dst *T, data []byte)
}

// Calculated declares a calculated field. fn runs once per frame after every
// field named in deps has been decoded; it receives the partially decoded
// destination and the raw frame, and must not retain either.
func Calculated[T any](name string, deps []string, fn func(dst *T, data []byte)) *CalcField[T] {
	return &CalcField[T]{name: name, deps: append([]string(nil), deps...), fn: fn}
}

func (f *CalcField[T]) Info() FieldInfo {
	return FieldInfo{Name: f.name, Kind: Calculated, Depends: append([]string(nil), f.deps...)}
}

func (f *CalcField[T]) compile(*telemetry.VariableHeader) (step[T], error) {
	return step[T]{name: f.name, present: true, apply: f.fn}, nil
}

// Typed shorthands for the common destinations.

func Float64[T any](name, source string, set func(*T, float64)) *ScalarField[T, float64] {
	return Var(name, source, set)
}

func Float32[T any](name, source string, set func(*T, float32)) *ScalarField[T, float32] {
	return Var(name, source, set)
}

func Int32[T any](name, source string, set func(*T, int32)) *ScalarField[T, int32] {
	return Var(name, source, set)
}

func Bool[T any](name, source string, set func(*T, bool)) *ScalarField[T, bool] {
	return Var(name, source, set)
}

func Flags[T any](name, source string, set func(*T, telemetry.BitField)) *ScalarField[T, telemetry.BitField] {
	return Var(name, source, set)
}

func String[T any](name, source string, set func(*T, string)) *ScalarField[T, string] {
	return Var(name, source, set)
}

func Float64s[T any](name, source string, n int, set func(*T, []float64)) *ArrayField[T, float64] {
	return Array(name, source, n, set)
}

func Float32s[T any](name, source string, n int, set func(*T, []float32)) *ArrayField[T, float32] {
	return Array(name, source, n, set)
}

func Int32s[T any](name, source string, n int, set func(*T, []int32)) *ArrayField[T, int32] {
	return Array(name, source, n, set)
}

func Bools[T any](name, source string, n int, set func(*T, []bool)) *ArrayField[T, bool] {
	return Array(name, source, n, set)
}
