package telemetry

import "fmt"

// VarType is the irsdk primitive type tag of a variable.
type VarType int32

const (
	TypeChar VarType = iota
	TypeBool
	TypeInt
	TypeBitField
	TypeFloat
	TypeDouble
)

// Size returns the width of one element in bytes, or 0 for an unknown tag.
func (t VarType) Size() int {
	switch t {
	case TypeChar, TypeBool:
		return 1
	case TypeInt, TypeBitField, TypeFloat:
		return 4
	case TypeDouble:
		return 8
	default:
		return 0
	}
}

// Valid reports whether t is a known type tag.
func (t VarType) Valid() bool { return t >= TypeChar && t <= TypeDouble }

func (t VarType) String() string {
	switch t {
	case TypeChar:
		return "char"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int32"
	case TypeBitField:
		return "bitfield"
	case TypeFloat:
		return "float32"
	case TypeDouble:
		return "float64"
	default:
		return fmt.Sprintf("VarType(%d)", int32(t))
	}
}

// Variable describes one telemetry channel inside a frame buffer.
type Variable struct {
	Name        string
	Desc        string
	Unit        string
	Type        VarType
	Offset      int
	Count       int
	CountAsTime bool
}

// Size returns the byte length of the variable inside a frame.
func (v Variable) Size() int { return v.Type.Size() * v.Count }

// VariableHeader is the ordered, immutable variable table of one feed.
type VariableHeader struct {
	vars   []Variable
	index  map[string]int
	bufLen int
}

// NewVariableHeader validates vars against the frame size and builds the
// name index. Duplicate names, unknown types and out-of-bounds variables are
// reported as ErrCorruptHeader.
func NewVariableHeader(vars []Variable, bufLen int) (*VariableHeader, error) {
	if bufLen < 0 {
		return nil, FormatErrorf(ErrCorruptHeader, "negative frame size %d", bufLen)
	}
	h := &VariableHeader{
		vars:   make([]Variable, len(vars)),
		index:  make(map[string]int, len(vars)),
		bufLen: bufLen,
	}
	copy(h.vars, vars)
	for i, v := range h.vars {
		if v.Name == "" {
			return nil, FormatErrorf(ErrCorruptHeader, "variable %d has no name", i)
		}
		if !v.Type.Valid() {
			return nil, FormatErrorf(ErrCorruptHeader, "variable %q has unknown type %d", v.Name, int32(v.Type))
		}
		if v.Count < 1 {
			return nil, FormatErrorf(ErrCorruptHeader, "variable %q has count %d", v.Name, v.Count)
		}
		if v.Offset < 0 || v.Offset+v.Size() > bufLen {
			return nil, FormatErrorf(ErrCorruptHeader, "variable %q [%d,%d) outside frame of %d bytes",
				v.Name, v.Offset, v.Offset+v.Size(), bufLen)
		}
		if _, dup := h.index[v.Name]; dup {
			return nil, FormatErrorf(ErrCorruptHeader, "duplicate variable %q", v.Name)
		}
		h.index[v.Name] = i
	}
	return h, nil
}

// Len returns the number of variables.
func (h *VariableHeader) Len() int { return len(h.vars) }

// BufLen returns the size of one frame buffer in bytes.
func (h *VariableHeader) BufLen() int { return h.bufLen }

// Lookup returns the variable with the given name.
func (h *VariableHeader) Lookup(name string) (Variable, bool) {
	i, ok := h.index[name]
	if !ok {
		return Variable{}, false
	}
	return h.vars[i], true
}

// Variables returns a copy of the table in header order.
func (h *VariableHeader) Variables() []Variable {
	out := make([]Variable, len(h.vars))
	copy(out, h.vars)
	return out
}

// Names returns the variable names in header order.
func (h *VariableHeader) Names() []string {
	out := make([]string, len(h.vars))
	for i, v := range h.vars {
		out[i] = v.Name
	}
	return out
}

// SameLayout reports whether both headers decode frames identically.
func (h *VariableHeader) SameLayout(other *VariableHeader) bool {
	if h == other {
		return true
	}
	if other == nil || h.bufLen != other.bufLen || len(h.vars) != len(other.vars) {
		return false
	}
	for i, v := range h.vars {
		o := other.vars[i]
		if v.Name != o.Name || v.Type != o.Type || v.Offset != o.Offset || v.Count != o.Count {
			return false
		}
	}
	return true
}
