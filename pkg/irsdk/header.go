package irsdk

import (
	"encoding/binary"

	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// Layout constants of the irsdk shared header and the .ibt file.
const (
	// Version is the only header version understood by this package.
	Version = 2

	// HeaderSize is the size of the fixed irsdk header.
	HeaderSize = 112

	// MaxBufs is the number of rotating buffer slots in the header.
	MaxBufs = 4

	// MaxVars bounds numVars to reject garbage headers.
	MaxVars = 10000

	// MaxBufLen bounds bufLen to reject garbage headers.
	MaxBufLen = 100 << 20

	// StatusConnected is the status bit set while the simulator is running.
	StatusConnected = 1

	// DefaultTickRate is used when a file header carries no usable tick rate.
	DefaultTickRate = 60
)

// VarBuf is one rotating data buffer slot.
type VarBuf struct {
	TickCount int32
	BufOffset int32
}

// Header is the fixed irsdk header shared by live memory and .ibt files.
type Header struct {
	Ver               int32
	Status            int32
	TickRate          int32
	SessionInfoUpdate int32
	SessionInfoLen    int32
	SessionInfoOffset int32
	NumVars           int32
	VarHeaderOffset   int32
	NumBuf            int32
	BufLen            int32
	VarBuf            [MaxBufs]VarBuf
}

// ParseHeader decodes the fixed header from the start of b.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, telemetry.FormatErrorf(telemetry.ErrTruncated,
			"header needs %d bytes, have %d", HeaderSize, len(b))
	}
	le := binary.LittleEndian
	h := Header{
		Ver:               int32(le.Uint32(b[0:])),
		Status:            int32(le.Uint32(b[4:])),
		TickRate:          int32(le.Uint32(b[8:])),
		SessionInfoUpdate: int32(le.Uint32(b[12:])),
		SessionInfoLen:    int32(le.Uint32(b[16:])),
		SessionInfoOffset: int32(le.Uint32(b[20:])),
		NumVars:           int32(le.Uint32(b[24:])),
		VarHeaderOffset:   int32(le.Uint32(b[28:])),
		NumBuf:            int32(le.Uint32(b[32:])),
		BufLen:            int32(le.Uint32(b[36:])),
	}
	// pad[2] at 40..48, then 16-byte varBuf entries.
	for i := range h.VarBuf {
		off := 48 + i*16
		h.VarBuf[i] = VarBuf{
			TickCount: int32(le.Uint32(b[off:])),
			BufOffset: int32(le.Uint32(b[off+4:])),
		}
	}
	return h, nil
}

// Encode writes the header into the first HeaderSize bytes of b.
func (h Header) Encode(b []byte) {
	le := binary.LittleEndian
	le.PutUint32(b[0:], uint32(h.Ver))
	le.PutUint32(b[4:], uint32(h.Status))
	le.PutUint32(b[8:], uint32(h.TickRate))
	le.PutUint32(b[12:], uint32(h.SessionInfoUpdate))
	le.PutUint32(b[16:], uint32(h.SessionInfoLen))
	le.PutUint32(b[20:], uint32(h.SessionInfoOffset))
	le.PutUint32(b[24:], uint32(h.NumVars))
	le.PutUint32(b[28:], uint32(h.VarHeaderOffset))
	le.PutUint32(b[32:], uint32(h.NumBuf))
	le.PutUint32(b[36:], uint32(h.BufLen))
	for i := 40; i < 48; i++ {
		b[i] = 0
	}
	for i, vb := range h.VarBuf {
		off := 48 + i*16
		le.PutUint32(b[off:], uint32(vb.TickCount))
		le.PutUint32(b[off+4:], uint32(vb.BufOffset))
		for j := off + 8; j < off+16; j++ {
			b[j] = 0
		}
	}
}

// Connected reports whether the simulator status bit is set.
func (h Header) Connected() bool { return h.Status&StatusConnected != 0 }

// Latest returns the index of the buffer slot with the greatest tick count.
func (h Header) Latest() int {
	n := int(h.NumBuf)
	if n < 1 {
		return 0
	}
	if n > MaxBufs {
		n = MaxBufs
	}
	latest := 0
	for i := 1; i < n; i++ {
		if h.VarBuf[i].TickCount > h.VarBuf[latest].TickCount {
			latest = i
		}
	}
	return latest
}

// VarHeadersEnd returns the offset just past the variable table.
func (h Header) VarHeadersEnd() int64 {
	return int64(h.VarHeaderOffset) + int64(h.NumVars)*VarHeaderSize
}

// SameLayout reports whether two headers describe the same variable table and frame size.
func (h Header) SameLayout(o Header) bool {
	return h.NumVars == o.NumVars && h.VarHeaderOffset == o.VarHeaderOffset && h.BufLen == o.BufLen
}

// Validate checks the header against a region of size bytes. minBufs is
// the smallest acceptable buffer count (live memory needs at least one
// rotating buffer, files carry exactly one).
func (h Header) Validate(size int64, minBufs int) error {
	if h.Ver != Version {
		return telemetry.FormatErrorf(telemetry.ErrUnsupportedVersion, "version %d", h.Ver)
	}
	if h.NumVars < 0 || h.NumVars > MaxVars {
		return telemetry.FormatErrorf(telemetry.ErrCorruptHeader, "numVars %d", h.NumVars)
	}
	if h.BufLen < 0 || h.BufLen > MaxBufLen {
		return telemetry.FormatErrorf(telemetry.ErrCorruptHeader, "bufLen %d", h.BufLen)
	}
	if int(h.NumBuf) < minBufs || h.NumBuf > MaxBufs {
		return telemetry.FormatErrorf(telemetry.ErrCorruptHeader, "numBuf %d", h.NumBuf)
	}
	if h.VarHeaderOffset < 0 || h.SessionInfoOffset < 0 || h.SessionInfoLen < 0 {
		return telemetry.FormatErrorf(telemetry.ErrCorruptHeader, "negative offset")
	}
	if h.VarHeadersEnd() > size {
		return telemetry.FormatErrorf(telemetry.ErrTruncated,
			"variable table ends at %d, region is %d bytes", h.VarHeadersEnd(), size)
	}
	if int64(h.SessionInfoOffset)+int64(h.SessionInfoLen) > size {
		return telemetry.FormatErrorf(telemetry.ErrTruncated,
			"session info ends at %d, region is %d bytes", int64(h.SessionInfoOffset)+int64(h.SessionInfoLen), size)
	}
	return nil
}
