package irsdk

import (
	"encoding/binary"
	"math"

	"github.com/bft-labs/pitwall/pkg/telemetry"
)

const (
	// FileHeaderSize is the on-disk size of the header, padded past HeaderSize.
	FileHeaderSize = 144

	// DiskHeaderSize is the size of the disk sub-header that follows it.
	DiskHeaderSize = 32
)

// DiskHeader is the .ibt sub-header describing the recording.
type DiskHeader struct {
	StartDate   int64   // unix seconds
	StartTime   float64 // session time of the first record
	EndTime     float64 // session time of the last record
	LapCount    int32
	RecordCount int32
}

// ParseDiskHeader decodes the disk sub-header from the start of b.
func ParseDiskHeader(b []byte) (DiskHeader, error) {
	if len(b) < DiskHeaderSize {
		return DiskHeader{}, telemetry.FormatErrorf(telemetry.ErrTruncated,
			"disk header needs %d bytes, have %d", DiskHeaderSize, len(b))
	}
	le := binary.LittleEndian
	return DiskHeader{
		StartDate:   int64(le.Uint64(b[0:])),
		StartTime:   math.Float64frombits(le.Uint64(b[8:])),
		EndTime:     math.Float64frombits(le.Uint64(b[16:])),
		LapCount:    int32(le.Uint32(b[24:])),
		RecordCount: int32(le.Uint32(b[28:])),
	}, nil
}

// Encode writes the disk sub-header into the first DiskHeaderSize bytes of b.
func (d DiskHeader) Encode(b []byte) {
	le := binary.LittleEndian
	le.PutUint64(b[0:], uint64(d.StartDate))
	le.PutUint64(b[8:], math.Float64bits(d.StartTime))
	le.PutUint64(b[16:], math.Float64bits(d.EndTime))
	le.PutUint32(b[24:], uint32(d.LapCount))
	le.PutUint32(b[28:], uint32(d.RecordCount))
}
