package decode

import (
	"bytes"
	"encoding/binary"
	"math"
	"strconv"

	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// Scalar destination types.
type Value interface {
	float64 | float32 | int32 | bool | telemetry.BitField | string
}

// Array element destination types.
type Elem interface {
	float64 | float32 | int32 | bool | telemetry.BitField
}

var le = binary.LittleEndian

// elemReader returns a function reading one V at an absolute offset from a
// variable of type src, or false when src cannot widen into V.
//
// The returned closure is asserted from a concrete func type; V is always
// exactly the type named in the case, so the assertion cannot fail.
func elemReader[V Elem](src telemetry.VarType) (func(b []byte, off int) V, bool) {
	var zero V
	var rd any
	switch any(zero).(type) {
	case float64:
		switch src {
		case telemetry.TypeDouble:
			rd = func(b []byte, off int) float64 { return math.Float64frombits(le.Uint64(b[off:])) }
		case telemetry.TypeFloat:
			rd = func(b []byte, off int) float64 { return float64(math.Float32frombits(le.Uint32(b[off:]))) }
		case telemetry.TypeInt:
			rd = func(b []byte, off int) float64 { return float64(int32(le.Uint32(b[off:]))) }
		}
	case float32:
		if src == telemetry.TypeFloat {
			rd = func(b []byte, off int) float32 { return math.Float32frombits(le.Uint32(b[off:])) }
		}
	case int32:
		if src == telemetry.TypeInt || src == telemetry.TypeBitField {
			rd = func(b []byte, off int) int32 { return int32(le.Uint32(b[off:])) }
		}
	case bool:
		if src == telemetry.TypeBool {
			rd = func(b []byte, off int) bool { return b[off] != 0 }
		}
	case telemetry.BitField:
		if src == telemetry.TypeBitField || src == telemetry.TypeInt {
			rd = func(b []byte, off int) telemetry.BitField { return telemetry.BitField(le.Uint32(b[off:])) }
		}
	}
	if rd == nil {
		return nil, false
	}
	return rd.(func([]byte, int) V), true
}

// scalarReader binds a reader for v into a func of the frame alone.
func scalarReader[V Value](v telemetry.Variable) (func(b []byte) V, error) {
	var zero V
	if _, isString := any(zero).(string); isString {
		if v.Type != telemetry.TypeChar {
			return nil, mismatch(v, "string")
		}
		off, n := v.Offset, v.Count
		var rd any = func(b []byte) string { return cstring(b[off : off+n]) }
		return rd.(func([]byte) V), nil
	}
	if v.Count != 1 {
		return nil, mismatch(v, typeName[V]())
	}
	var rd any
	switch any(zero).(type) {
	case float64:
		rd = bindScalar[float64](v)
	case float32:
		rd = bindScalar[float32](v)
	case int32:
		rd = bindScalar[int32](v)
	case bool:
		rd = bindScalar[bool](v)
	case telemetry.BitField:
		rd = bindScalar[telemetry.BitField](v)
	}
	f, ok := rd.(func([]byte) V)
	if !ok || f == nil {
		return nil, mismatch(v, typeName[V]())
	}
	return f, nil
}

func bindScalar[E Elem](v telemetry.Variable) func([]byte) E {
	elem, ok := elemReader[E](v.Type)
	if !ok {
		return nil
	}
	off := v.Offset
	return func(b []byte) E { return elem(b, off) }
}

// arrayReader returns a reader producing a fresh n-element slice per frame.
func arrayReader[V Elem](v telemetry.Variable, n int) (func(b []byte) []V, error) {
	want := "[" + strconv.Itoa(n) + "]" + typeName[V]()
	if v.Count != n {
		return nil, mismatch(v, want)
	}
	elem, ok := elemReader[V](v.Type)
	if !ok {
		return nil, mismatch(v, want)
	}
	off, stride := v.Offset, v.Type.Size()
	return func(b []byte) []V {
		out := make([]V, n)
		for i := range out {
			out[i] = elem(b, off+i*stride)
		}
		return out
	}, nil
}

func mismatch(v telemetry.Variable, want string) *SchemaError {
	got := v.Type.String()
	if v.Count != 1 {
		got = "[" + strconv.Itoa(v.Count) + "]" + got
	}
	return &SchemaError{Kind: telemetry.ErrTypeMismatch, Variable: v.Name, Want: want, Got: got}
}

func typeName[V any]() string {
	var zero V
	switch any(zero).(type) {
	case float64:
		return "float64"
	case float32:
		return "float32"
	case int32:
		return "int32"
	case bool:
		return "bool"
	case telemetry.BitField:
		return "bitfield"
	default:
		return "string"
	}
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
