package pitwall

import (
	"context"

	"github.com/bft-labs/pitwall/internal/domain"
	"github.com/bft-labs/pitwall/internal/hub"
)

// SessionUpdate is one revision of the session document. Document is nil
// and ParseErr set when the YAML could not be parsed; Info always carries
// the raw text.
type SessionUpdate = domain.SessionSnapshot

// SessionStream yields session revisions in increasing order.
type SessionStream struct {
	cursor *hub.SessionCursor
}

// Next returns the first revision newer than the last one returned. The
// first call returns the current revision at once, if there is one.
func (s *SessionStream) Next(ctx context.Context) (*SessionUpdate, error) {
	return s.cursor.Next(ctx)
}

// Close ends the stream. Other streams are unaffected.
func (s *SessionStream) Close() { s.cursor.Close() }
