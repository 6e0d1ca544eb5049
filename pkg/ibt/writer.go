package ibt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bft-labs/pitwall/pkg/irsdk"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// ErrWriterClosed is returned by WriteFrame after Close.
var ErrWriterClosed = errors.New("ibt: writer closed")

// WriterOptions describes the recording being written.
type WriterOptions struct {
	// TickRate in ticks per second. Default: 60
	TickRate int
	// SessionYAML is stored verbatim between the variable table and the frames.
	SessionYAML     string
	SessionRevision int
	// StartDate is the wall-clock start of the recording. Default: time.Now()
	StartDate time.Time
	// StartTime is the session time of the first record in seconds.
	StartTime float64
	LapCount  int
}

// Writer produces .ibt files readable by Reader.
//
// Layout: header, disk header, variable table, session document, frames.
// The header is rewritten with the final record count on Close.
type Writer struct {
	ws     io.WriteSeeker
	closer io.Closer
	opts   WriterOptions
	vars   *telemetry.VariableHeader

	header irsdk.Header
	frames int
	closed bool
}

// Create creates or truncates path and writes the file preamble.
func Create(path string, vars *telemetry.VariableHeader, opts WriterOptions) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	w, err := NewWriter(f, vars, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// NewWriter writes the file preamble to ws.
func NewWriter(ws io.WriteSeeker, vars *telemetry.VariableHeader, opts WriterOptions) (*Writer, error) {
	if opts.TickRate <= 0 {
		opts.TickRate = irsdk.DefaultTickRate
	}
	if opts.StartDate.IsZero() {
		opts.StartDate = time.Now()
	}

	varOffset := int32(irsdk.FileHeaderSize + irsdk.DiskHeaderSize)
	sessionOffset := varOffset + int32(vars.Len()*irsdk.VarHeaderSize)
	sessionLen := int32(0)
	if opts.SessionYAML != "" {
		sessionLen = int32(len(opts.SessionYAML) + 1) // NUL terminated
	}
	dataStart := sessionOffset + sessionLen

	w := &Writer{
		ws:   ws,
		opts: opts,
		vars: vars,
		header: irsdk.Header{
			Ver:               irsdk.Version,
			Status:            irsdk.StatusConnected,
			TickRate:          int32(opts.TickRate),
			SessionInfoUpdate: int32(opts.SessionRevision),
			SessionInfoLen:    sessionLen,
			SessionInfoOffset: sessionOffset,
			NumVars:           int32(vars.Len()),
			VarHeaderOffset:   varOffset,
			NumBuf:            1,
			BufLen:            int32(vars.BufLen()),
		},
	}
	w.header.VarBuf[0].BufOffset = dataStart

	pre := make([]byte, dataStart)
	w.encodePrefix(pre)
	for i, v := range vars.Variables() {
		irsdk.EncodeVarHeader(v, pre[int(varOffset)+i*irsdk.VarHeaderSize:])
	}
	copy(pre[sessionOffset:], opts.SessionYAML)
	if _, err := ws.Write(pre); err != nil {
		return nil, fmt.Errorf("write preamble: %w", err)
	}
	return w, nil
}

// WriteFrame appends one frame record. data must be exactly one frame long.
func (w *Writer) WriteFrame(data []byte) error {
	if w.closed {
		return ErrWriterClosed
	}
	if len(data) != w.vars.BufLen() {
		return fmt.Errorf("ibt: frame is %d bytes, want %d", len(data), w.vars.BufLen())
	}
	if _, err := w.ws.Write(data); err != nil {
		return fmt.Errorf("write frame %d: %w", w.frames, err)
	}
	w.frames++
	w.header.VarBuf[0].TickCount = int32(w.frames)
	return nil
}

// Frames returns the number of records written so far.
func (w *Writer) Frames() int { return w.frames }

// Close finalizes the header and closes the file if Create opened it.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	pre := make([]byte, irsdk.FileHeaderSize+irsdk.DiskHeaderSize)
	w.encodePrefix(pre)
	_, err := w.ws.Seek(0, io.SeekStart)
	if err == nil {
		_, err = w.ws.Write(pre)
	}
	if err == nil {
		_, err = w.ws.Seek(0, io.SeekEnd)
	}
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	return nil
}

func (w *Writer) encodePrefix(b []byte) {
	w.header.Encode(b)
	disk := irsdk.DiskHeader{
		StartDate:   w.opts.StartDate.Unix(),
		StartTime:   w.opts.StartTime,
		EndTime:     w.opts.StartTime + float64(w.frames)/float64(w.opts.TickRate),
		LapCount:    int32(w.opts.LapCount),
		RecordCount: int32(w.frames),
	}
	disk.Encode(b[irsdk.FileHeaderSize:])
}
