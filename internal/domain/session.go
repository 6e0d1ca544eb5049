package domain

import (
	"github.com/bft-labs/pitwall/pkg/session"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// SessionSnapshot is one published session-info revision. The document is
// parsed once, by the producer, when the revision changes.
type SessionSnapshot struct {
	Info     telemetry.SessionInfo
	Document *session.Document

	// ParseErr is set when the YAML could not be parsed. Info still carries
	// the raw text.
	ParseErr error
}
