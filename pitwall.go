// Package pitwall reads racing-simulator telemetry from the live shared-memory
// feed or from .ibt recordings.
//
// Example usage:
//
//	conn, err := pitwall.OpenReplay("session.ibt", pitwall.WithPlaybackRate(2))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	sub, err := pitwall.Subscribe(conn, mapping, telemetry.Max(10))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for {
//	    f, err := sub.Next(ctx)
//	    if err != nil {
//	        break // wraps telemetry.ErrSourceClosed once the feed ends
//	    }
//	    fmt.Println(f.Tick, f.Value)
//	}
//
// The full API lives in pkg/pitwall; this package re-exports the common parts.
package pitwall

import (
	"context"

	"github.com/bft-labs/pitwall/pkg/decode"
	conn "github.com/bft-labs/pitwall/pkg/pitwall"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// Connection is a live or replay telemetry feed.
type Connection = conn.Connection

// Option configures a Connection.
type Option = conn.Option

// SessionUpdate is one parsed session-info revision.
type SessionUpdate = conn.SessionUpdate

// Update rates.
var (
	Native = telemetry.Native
	Max    = telemetry.Max
)

// Options.
var (
	WithLogger       = conn.WithLogger
	WithMetrics      = conn.WithMetrics
	WithStateHandler = conn.WithStateHandler
	WithStartPaused  = conn.WithStartPaused
	WithPlaybackRate = conn.WithPlaybackRate
	WithUnpaced      = conn.WithUnpaced
	WithMappingPath  = conn.WithMappingPath
	WithPollInterval = conn.WithPollInterval
)

// ConnectLive attaches to the running simulator.
func ConnectLive(ctx context.Context, opts ...Option) (*Connection, error) {
	return conn.ConnectLive(ctx, opts...)
}

// OpenReplay opens an .ibt recording.
func OpenReplay(path string, opts ...Option) (*Connection, error) {
	return conn.OpenReplay(path, opts...)
}

// Subscribe compiles mapping against the connection's variables and starts
// delivering decoded frames at rate.
func Subscribe[T any](c *Connection, mapping *decode.Mapping[T], rate telemetry.UpdateRate) (*conn.Subscription[T], error) {
	return conn.Subscribe(c, mapping, rate)
}

// Version is the module version.
const Version = conn.Version
