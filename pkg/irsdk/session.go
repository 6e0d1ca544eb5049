package irsdk

import (
	"bytes"
	"unicode/utf8"

	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// SessionYAML extracts the NUL-terminated session document described by h.
// An empty document is returned as "" without error.
func SessionYAML(region []byte, h Header) (string, error) {
	if h.SessionInfoLen <= 0 {
		return "", nil
	}
	start := int64(h.SessionInfoOffset)
	end := start + int64(h.SessionInfoLen)
	if start < 0 || end > int64(len(region)) {
		return "", telemetry.FormatErrorf(telemetry.ErrTruncated,
			"session info [%d,%d) outside %d bytes", start, end, len(region))
	}
	doc := region[start:end]
	if i := bytes.IndexByte(doc, 0); i >= 0 {
		doc = doc[:i]
	}
	if !utf8.Valid(doc) {
		// The simulator writes Latin-1 driver names; keep the bytes readable.
		return string(bytes.ToValidUTF8(doc, []byte("�"))), nil
	}
	return string(doc), nil
}
