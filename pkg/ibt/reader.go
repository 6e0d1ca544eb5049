package ibt

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bft-labs/pitwall/pkg/irsdk"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// Reader provides random access to the frame records of one .ibt file.
// It is safe for concurrent ReadFrame calls.
type Reader struct {
	src    io.ReaderAt
	closer io.Closer
	size   int64

	header    irsdk.Header
	disk      irsdk.DiskHeader
	vars      *telemetry.VariableHeader
	session   string
	dataStart int64
	frames    int
	tickRate  float64
}

// Open opens and validates the file at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", telemetry.ErrReplay, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", telemetry.ErrReplay, path, err)
	}
	r, err := NewReader(f, st.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader parses a telemetry file of size bytes served by src.
func NewReader(src io.ReaderAt, size int64) (*Reader, error) {
	const prefix = irsdk.FileHeaderSize + irsdk.DiskHeaderSize
	if size < prefix {
		return nil, telemetry.FormatErrorf(telemetry.ErrTruncated, "file is %d bytes, header needs %d", size, prefix)
	}

	head := make([]byte, prefix)
	if err := readFull(src, head, 0); err != nil {
		return nil, err
	}
	h, err := irsdk.ParseHeader(head)
	if err != nil {
		return nil, err
	}
	if err := h.Validate(size, 1); err != nil {
		return nil, err
	}
	disk, err := irsdk.ParseDiskHeader(head[irsdk.FileHeaderSize:])
	if err != nil {
		return nil, err
	}

	r := &Reader{src: src, size: size, header: h, disk: disk}

	table := make([]byte, int64(h.NumVars)*irsdk.VarHeaderSize)
	if err := readFull(src, table, int64(h.VarHeaderOffset)); err != nil {
		return nil, err
	}
	vars, err := irsdk.ParseVarHeaders(table, int(h.NumVars))
	if err != nil {
		return nil, err
	}
	if r.vars, err = telemetry.NewVariableHeader(vars, int(h.BufLen)); err != nil {
		return nil, err
	}

	if h.SessionInfoLen > 0 {
		blob := make([]byte, h.SessionInfoLen)
		if err := readFull(src, blob, int64(h.SessionInfoOffset)); err != nil {
			return nil, err
		}
		// SessionYAML expects offsets relative to the region it is given.
		local := h
		local.SessionInfoOffset = 0
		if r.session, err = irsdk.SessionYAML(blob, local); err != nil {
			return nil, err
		}
	}

	r.dataStart = max(h.VarHeadersEnd(), int64(h.SessionInfoOffset)+int64(h.SessionInfoLen), prefix)
	if h.BufLen > 0 && size > r.dataStart {
		r.frames = int((size - r.dataStart) / int64(h.BufLen))
	}
	if n := int(disk.RecordCount); n > 0 {
		if n > r.frames {
			return nil, telemetry.FormatErrorf(telemetry.ErrTruncated,
				"header records %d frames, file holds %d", n, r.frames)
		}
		r.frames = n
	}

	r.tickRate = float64(h.TickRate)
	if r.tickRate <= 0 {
		r.tickRate = irsdk.DefaultTickRate
	}
	return r, nil
}

// Header returns the raw file header.
func (r *Reader) Header() irsdk.Header { return r.header }

// DiskHeader returns the recording sub-header.
func (r *Reader) DiskHeader() irsdk.DiskHeader { return r.disk }

// Variables returns the variable table.
func (r *Reader) Variables() *telemetry.VariableHeader { return r.vars }

// SessionYAML returns the raw session document stored in the file.
func (r *Reader) SessionYAML() string { return r.session }

// SessionRevision returns the session-info revision recorded in the header.
func (r *Reader) SessionRevision() int { return int(r.header.SessionInfoUpdate) }

// TickRate returns the recording rate in ticks per second.
func (r *Reader) TickRate() float64 { return r.tickRate }

// Len returns the number of frame records.
func (r *Reader) Len() int { return r.frames }

// FrameSize returns the size of one frame record in bytes.
func (r *Reader) FrameSize() int { return int(r.header.BufLen) }

// DataOffset returns the file offset of the first frame record.
func (r *Reader) DataOffset() int64 { return r.dataStart }

// ReadFrame reads record i into dst, growing it when too small, and returns
// the filled slice.
func (r *Reader) ReadFrame(i int, dst []byte) ([]byte, error) {
	if i < 0 || i >= r.frames {
		return nil, fmt.Errorf("%w: frame %d of %d", telemetry.ErrSeekOutOfRange, i, r.frames)
	}
	n := int(r.header.BufLen)
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	if err := readFull(r.src, dst, r.dataStart+int64(i)*int64(n)); err != nil {
		return nil, err
	}
	return dst, nil
}

// Close releases the underlying file, if the Reader opened it.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

func readFull(src io.ReaderAt, dst []byte, off int64) error {
	if len(dst) == 0 {
		return nil
	}
	n, err := src.ReadAt(dst, off)
	if n == len(dst) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return telemetry.FormatErrorf(telemetry.ErrTruncated, "read %d of %d bytes at offset %d", n, len(dst), off)
	}
	return fmt.Errorf("%w: read at %d: %w", telemetry.ErrReplay, off, err)
}
