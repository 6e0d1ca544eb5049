package decode

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// Mapping is the ordered list of field descriptors for destination type T.
type Mapping[T any] struct {
	fields []Field[T]
}

// NewMapping builds a mapping from fields in declaration order.
func NewMapping[T any](fields ...Field[T]) *Mapping[T] {
	return &Mapping[T]{fields: append([]Field[T](nil), fields...)}
}

// Add appends fields and returns m.
func (m *Mapping[T]) Add(fields ...Field[T]) *Mapping[T] {
	m.fields = append(m.fields, fields...)
	return m
}

// Fields returns the descriptor view of every entry.
func (m *Mapping[T]) Fields() []FieldInfo {
	out := make([]FieldInfo, len(m.fields))
	for i, f := range m.fields {
		out[i] = f.Info()
	}
	return out
}

// Plan is a Mapping compiled against one VariableHeader. It is immutable
// and safe for concurrent use.
type Plan[T any] struct {
	header  *telemetry.VariableHeader
	steps   []step[T] // direct fields, then calculated fields in dependency order
	order   []string
	present map[string]bool
}

// Compile validates m against h. All violations are reported together; each
// is a *SchemaError.
func Compile[T any](m *Mapping[T], h *telemetry.VariableHeader) (*Plan[T], error) {
	if m == nil || h == nil {
		return nil, &SchemaError{Kind: telemetry.ErrInvalidMapping}
	}

	var errs []error
	seen := make(map[string]bool, len(m.fields))
	var direct []step[T]
	calcs := make(map[string]step[T])
	var calcInfo []FieldInfo
	present := make(map[string]bool, len(m.fields))

	for _, f := range m.fields {
		info := f.Info()
		if info.Name == "" || seen[info.Name] {
			errs = append(errs, &SchemaError{Kind: telemetry.ErrInvalidMapping, Field: info.Name})
			continue
		}
		seen[info.Name] = true
		if isNilSetter(f) {
			errs = append(errs, &SchemaError{Kind: telemetry.ErrInvalidMapping, Field: info.Name})
			continue
		}

		st, err := f.compile(h)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		present[info.Name] = st.present
		if info.Kind == Calculated {
			calcs[info.Name] = st
			calcInfo = append(calcInfo, info)
			continue
		}
		direct = append(direct, st)
	}

	ordered, calcErrs := orderCalculated(calcInfo, seen)
	errs = append(errs, calcErrs...)
	switch len(errs) {
	case 0:
	case 1:
		return nil, errs[0]
	default:
		return nil, errors.Join(errs...)
	}

	p := &Plan[T]{header: h, present: present}
	for _, st := range direct {
		p.order = append(p.order, st.name)
		if st.apply != nil {
			p.steps = append(p.steps, st)
		}
	}
	for _, name := range ordered {
		p.order = append(p.order, name)
		p.steps = append(p.steps, calcs[name])
	}
	return p, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile[T any](m *Mapping[T], h *telemetry.VariableHeader) *Plan[T] {
	p, err := Compile(m, h)
	if err != nil {
		panic(fmt.Sprintf("decode: %v", err))
	}
	return p
}

// Header returns the header the plan was validated against.
func (p *Plan[T]) Header() *telemetry.VariableHeader { return p.header }

// Order returns field names in evaluation order. Skipped fields are listed
// at their declaration position.
func (p *Plan[T]) Order() []string { return append([]string(nil), p.order...) }

// Present reports whether field resolved to a variable in the header.
// Calculated fields are always present.
func (p *Plan[T]) Present(field string) bool { return p.present[field] }

// DecodeInto writes every mapped field of dst from data. Fields that are
// optional and absent, or skipped, are left untouched.
func (p *Plan[T]) DecodeInto(dst *T, data []byte) error {
	if len(data) != p.header.BufLen() {
		return fmt.Errorf("%w: frame is %d bytes, plan expects %d",
			telemetry.ErrPlanStale, len(data), p.header.BufLen())
	}
	for i := range p.steps {
		p.steps[i].apply(dst, data)
	}
	return nil
}

// Decode returns a freshly decoded T.
func (p *Plan[T]) Decode(data []byte) (T, error) {
	var out T
	err := p.DecodeInto(&out, data)
	return out, err
}

// isNilSetter catches fields constructed with a nil setter or function.
func isNilSetter[T any](f Field[T]) bool {
	switch ff := f.(type) {
	case *CalcField[T]:
		return ff.fn == nil
	default:
		// Scalar and array fields are generic over V; reflect on the set field.
		v := reflect.ValueOf(f)
		if v.Kind() != reflect.Pointer || v.IsNil() {
			return true
		}
		set := v.Elem().FieldByName("set")
		return set.IsValid() && set.IsNil()
	}
}
