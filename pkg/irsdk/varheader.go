package irsdk

import (
	"bytes"
	"encoding/binary"

	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// Variable header entry layout.
const (
	VarHeaderSize = 144
	MaxNameLen    = 32
	MaxDescLen    = 64
	MaxUnitLen    = 32
)

// ParseVarHeaders decodes n consecutive variable header entries from b.
func ParseVarHeaders(b []byte, n int) ([]telemetry.Variable, error) {
	if n < 0 {
		return nil, telemetry.FormatErrorf(telemetry.ErrCorruptHeader, "negative variable count %d", n)
	}
	if len(b) < n*VarHeaderSize {
		return nil, telemetry.FormatErrorf(telemetry.ErrTruncated,
			"variable table needs %d bytes, have %d", n*VarHeaderSize, len(b))
	}
	le := binary.LittleEndian
	vars := make([]telemetry.Variable, n)
	for i := range vars {
		e := b[i*VarHeaderSize : (i+1)*VarHeaderSize]
		vars[i] = telemetry.Variable{
			Type:        telemetry.VarType(int32(le.Uint32(e[0:]))),
			Offset:      int(int32(le.Uint32(e[4:]))),
			Count:       int(int32(le.Uint32(e[8:]))),
			CountAsTime: e[12] != 0,
			Name:        cstring(e[16 : 16+MaxNameLen]),
			Desc:        cstring(e[48 : 48+MaxDescLen]),
			Unit:        cstring(e[112 : 112+MaxUnitLen]),
		}
	}
	return vars, nil
}

// EncodeVarHeader writes v as one VarHeaderSize entry into b.
// Strings longer than their field are truncated, keeping a NUL terminator.
func EncodeVarHeader(v telemetry.Variable, b []byte) {
	e := b[:VarHeaderSize]
	for i := range e {
		e[i] = 0
	}
	le := binary.LittleEndian
	le.PutUint32(e[0:], uint32(v.Type))
	le.PutUint32(e[4:], uint32(int32(v.Offset)))
	le.PutUint32(e[8:], uint32(int32(v.Count)))
	if v.CountAsTime {
		e[12] = 1
	}
	putCString(e[16:16+MaxNameLen], v.Name)
	putCString(e[48:48+MaxDescLen], v.Desc)
	putCString(e[112:112+MaxUnitLen], v.Unit)
}

// BuildVariableHeader reads the variable table described by h out of region
// and validates it against the frame size.
func BuildVariableHeader(region []byte, h Header) (*telemetry.VariableHeader, error) {
	start := int64(h.VarHeaderOffset)
	end := h.VarHeadersEnd()
	if start < 0 || end > int64(len(region)) {
		return nil, telemetry.FormatErrorf(telemetry.ErrTruncated,
			"variable table [%d,%d) outside %d bytes", start, end, len(region))
	}
	vars, err := ParseVarHeaders(region[start:end], int(h.NumVars))
	if err != nil {
		return nil, err
	}
	return telemetry.NewVariableHeader(vars, int(h.BufLen))
}

func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimSpace(b))
}

func putCString(dst []byte, s string) {
	n := copy(dst[:len(dst)-1], s)
	dst[n] = 0
}
