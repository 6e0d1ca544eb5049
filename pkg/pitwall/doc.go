// Package pitwall streams simulator telemetry to typed subscribers.
//
// A Connection wraps one source, either the live shared-memory feed or an
// .ibt recording, and fans its frames out to any number of subscriptions.
// Each subscription decodes frames into its own struct using a
// decode.Mapping that is validated once, when it subscribes.
//
// # Basic Usage
//
//	conn, err := pitwall.OpenReplay("lap.ibt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	type Car struct{ Speed, RPM, Boost float64 }
//	m := decode.NewMapping[Car](
//	    decode.Float64("speed", "Speed", func(c *Car, v float64) { c.Speed = v }),
//	    decode.Float64("rpm", "RPM", func(c *Car, v float64) { c.RPM = v }),
//	    decode.Float64("boost", "Boost", func(c *Car, v float64) { c.Boost = v }).Fallback(0),
//	)
//	sub, err := pitwall.Subscribe(conn, m, telemetry.Max(10))
//	if err != nil {
//	    log.Fatal(err) // a *decode.SchemaError
//	}
//	for {
//	    f, err := sub.Next(ctx)
//	    if errors.Is(err, telemetry.ErrSourceClosed) {
//	        break
//	    }
//	    ...
//	}
//
// # Delivery
//
// Subscriptions see the latest frame only. A subscriber that is slower than
// the source skips frames instead of queueing them, and its counters record
// how many were overwritten. Max rates throttle on source time, so a
// replay played at 4x still delivers Max(10) per recorded second.
//
// # Session Info
//
// SessionUpdates returns a stream that yields the parsed session document
// whenever its revision increases.
//
// # Replay Control
//
// Pause, Resume, Seek and SetRate work on replay connections and return
// telemetry.ErrNotReplay on live ones.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package pitwall
