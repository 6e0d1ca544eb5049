package pitwall_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/pitwall/pkg/decode"
	"github.com/bft-labs/pitwall/pkg/ibt/ibttest"
	"github.com/bft-labs/pitwall/pkg/lifecycle"
	"github.com/bft-labs/pitwall/pkg/pitwall"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

type car struct {
	Speed float64
	RPM   float64
	Boost float64
}

func carMapping() *decode.Mapping[car] {
	return decode.NewMapping[car](
		decode.Float64("speed", "Speed", func(c *car, v float64) { c.Speed = v }),
		decode.Float64("rpm", "RPM", func(c *car, v float64) { c.RPM = v }),
		decode.Float64("boost", "Boost", func(c *car, v float64) { c.Boost = v }).Fallback(0),
	)
}

type fuel struct{ Fuel float64 }

func fuelMapping() *decode.Mapping[fuel] {
	return decode.NewMapping[fuel](
		decode.Float64("fuel", "Fuel", func(f *fuel, v float64) { f.Fuel = v }),
	)
}

func ctxT(t *testing.T, d time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}

func openPaused(t *testing.T, n int, opts ...pitwall.Option) *pitwall.Connection {
	t.Helper()
	opts = append([]pitwall.Option{pitwall.WithStartPaused()}, opts...)
	conn, err := pitwall.OpenReplay(ibttest.SpeedRPM(t, n), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestReplayDeliversEveryFrame(t *testing.T) {
	conn := openPaused(t, 100, pitwall.WithPlaybackRate(2))
	sub, err := pitwall.Subscribe(conn, carMapping(), telemetry.Native)
	require.NoError(t, err)
	assert.False(t, sub.Present("boost"))
	require.NoError(t, conn.Resume())

	ctx := ctxT(t, 10*time.Second)
	var got []pitwall.Frame[car]
	for {
		f, err := sub.Next(ctx)
		if err != nil {
			require.ErrorIs(t, err, telemetry.ErrSourceClosed)
			assert.ErrorIs(t, err, io.EOF)
			break
		}
		got = append(got, f)
	}

	require.Len(t, got, 100)
	for i, f := range got {
		assert.Equal(t, uint32(i), f.Tick)
		assert.Equal(t, float64(i)*0.5, f.Value.Speed)
		assert.Equal(t, 1000+float64(i), f.Value.RPM)
		assert.Zero(t, f.Value.Boost, "missing Boost falls back to 0")
	}

	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		t.Fatal("connection not done after end of replay")
	}
	assert.ErrorIs(t, conn.Err(), telemetry.ErrEndOfReplay)
	assert.Equal(t, lifecycle.StateStopped, conn.State())
	assert.Zero(t, sub.Stats().Dropped())
}

func TestMissingRequiredDoesNotDisturbOthers(t *testing.T) {
	conn := openPaused(t, 30, pitwall.WithUnpaced())

	good, err := pitwall.Subscribe(conn, carMapping(), telemetry.Native)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var ticks []uint32
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			f, err := good.Next(context.Background())
			if err != nil {
				return
			}
			ticks = append(ticks, f.Tick)
		}
	}()

	_, err = pitwall.Subscribe(conn, fuelMapping(), telemetry.Native)
	var se *decode.SchemaError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, telemetry.ErrMissingRequiredVariable)
	assert.ErrorIs(t, err, telemetry.ErrSchema)
	assert.Equal(t, "Fuel", se.Variable)

	require.NoError(t, conn.Resume())
	wg.Wait()

	require.NotEmpty(t, ticks)
	assert.Equal(t, uint32(29), ticks[len(ticks)-1])
	for i := 1; i < len(ticks); i++ {
		assert.Greater(t, ticks[i], ticks[i-1])
	}
	assert.Equal(t, 1, len(conn.Stats().Subscribers), "the rejected mapping never attached")
}

func TestMaxRateOnSourceTime(t *testing.T) {
	conn := openPaused(t, 120, pitwall.WithPlaybackRate(10))
	sub, err := pitwall.Subscribe(conn, carMapping(), telemetry.Max(10))
	require.NoError(t, err)
	require.NoError(t, conn.Resume())

	var prev *pitwall.Frame[car]
	n := 0
	for {
		f, err := sub.Next(ctxT(t, 10*time.Second))
		if err != nil {
			require.ErrorIs(t, err, telemetry.ErrSourceClosed)
			break
		}
		if prev != nil {
			assert.GreaterOrEqual(t, f.Time-prev.Time, 100*time.Millisecond)
		}
		prev = &f
		n++
	}
	assert.LessOrEqual(t, n, 20)
	assert.Positive(t, n)
}

func TestSessionUpdates(t *testing.T) {
	conn := openPaused(t, 5)
	stream := conn.SessionUpdates()
	defer stream.Close()

	u, err := stream.Next(ctxT(t, time.Second))
	require.NoError(t, err)
	require.NoError(t, u.ParseErr)
	assert.Equal(t, "Circuit de Spa-Francorchamps", u.Document.WeekendInfo.TrackDisplayName)

	cur, ok := conn.Session()
	require.True(t, ok)
	assert.Same(t, u, cur)

	require.NoError(t, conn.Close())
	_, err = stream.Next(ctxT(t, time.Second))
	assert.ErrorIs(t, err, telemetry.ErrSourceClosed)
}

func TestSeekStartsNewEpoch(t *testing.T) {
	conn := openPaused(t, 50, pitwall.WithUnpaced())
	raw, err := pitwall.SubscribeRaw(conn, telemetry.Native)
	require.NoError(t, err)

	n, err := conn.Len()
	require.NoError(t, err)
	assert.Equal(t, 50, n)

	require.NoError(t, conn.Seek(40))
	pos, err := conn.Position()
	require.NoError(t, err)
	assert.Equal(t, 40, pos)
	assert.ErrorIs(t, conn.Seek(50), telemetry.ErrSeekOutOfRange)

	require.NoError(t, conn.Resume())
	f, err := raw.Next(ctxT(t, time.Second))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), f.Epoch)
	assert.GreaterOrEqual(t, f.Tick, uint32(40))

	assert.ErrorIs(t, conn.SetRate(-1), telemetry.ErrInvalidRate)
	require.NoError(t, conn.SetRate(3))
	require.NoError(t, conn.Pause())
	assert.True(t, conn.Paused())
}

func TestCloseEndsSubscriptions(t *testing.T) {
	var mu sync.Mutex
	var states []lifecycle.State
	handler := lifecycle.HandlerFunc(func(e lifecycle.Event) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, e.Current)
	})
	conn := openPaused(t, 10, pitwall.WithStateHandler(handler))

	sub, err := pitwall.Subscribe(conn, carMapping(), telemetry.Native)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := sub.Next(context.Background())
		errCh <- err
	}()

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	select {
	case err := <-errCh:
		assert.Equal(t, telemetry.ErrSourceClosed, err)
	case <-time.After(time.Second):
		t.Fatal("Close did not end the subscription")
	}
	assert.NoError(t, conn.Err())
	assert.Equal(t, lifecycle.StateStopped, conn.State())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.Equal(t, lifecycle.StateStarting, states[0])
	assert.Equal(t, lifecycle.StateStopped, states[len(states)-1])

	_, err = pitwall.Subscribe(conn, carMapping(), telemetry.Native)
	assert.ErrorIs(t, err, telemetry.ErrSourceClosed)
}

func TestSubscriptionCloseIsolated(t *testing.T) {
	conn := openPaused(t, 10, pitwall.WithUnpaced())
	a, err := pitwall.Subscribe(conn, carMapping(), telemetry.Native)
	require.NoError(t, err)
	b, err := pitwall.Subscribe(conn, carMapping(), telemetry.Native)
	require.NoError(t, err)

	a.Close()
	_, err = a.Next(ctxT(t, time.Second))
	assert.ErrorIs(t, err, telemetry.ErrSubscriptionClosed)

	require.NoError(t, conn.Resume())
	f, err := b.Next(ctxT(t, time.Second))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), f.Epoch)
}

func TestOpenReplayErrors(t *testing.T) {
	_, err := pitwall.OpenReplay("/does/not/exist.ibt")
	assert.ErrorIs(t, err, telemetry.ErrReplay)

	_, err = pitwall.OpenReplay(ibttest.SpeedRPM(t, 1), pitwall.WithPlaybackRate(-1))
	assert.ErrorIs(t, err, telemetry.ErrInvalidRate)
}

func TestInvalidUpdateRate(t *testing.T) {
	conn := openPaused(t, 1)
	_, err := pitwall.Subscribe(conn, carMapping(), telemetry.Max(-5))
	assert.ErrorIs(t, err, telemetry.ErrInvalidUpdateRate)
}

func TestWithMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	conn := openPaused(t, 10, pitwall.WithUnpaced(), pitwall.WithMetrics(reg))
	sub, err := pitwall.SubscribeRaw(conn, telemetry.Native)
	require.NoError(t, err)
	require.NoError(t, conn.Resume())

	for {
		if _, err := sub.Next(ctxT(t, time.Second)); err != nil {
			require.True(t, errors.Is(err, telemetry.ErrSourceClosed))
			break
		}
	}
	n, err := testutil.GatherAndCount(reg, "pitwall_hub_frames_published_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 10, int(conn.Stats().Published))
}
