package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/pitwall/internal/domain"
	"github.com/bft-labs/pitwall/internal/metrics"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

const rate = 60.0

func frame(tick uint32) *telemetry.RawFrame {
	return &telemetry.RawFrame{Tick: tick, Time: telemetry.TickTime(tick, rate), Data: []byte{byte(tick)}}
}

func epochFrame(epoch, tick uint32) *telemetry.RawFrame {
	f := frame(tick)
	f.Epoch = epoch
	return f
}

func ctxT(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLatestValueWins(t *testing.T) {
	h := New(rate, nil, nil)
	c, err := h.Subscribe(telemetry.Native)
	require.NoError(t, err)

	h.Publish(frame(1))
	h.Publish(frame(2))

	got, err := c.Next(ctxT(t))
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got.Tick, "only the later frame is observed")

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Delivered)
	assert.Equal(t, uint64(1), st.Overwritten)
	assert.Equal(t, uint32(2), st.LastTick)
}

func TestTicksNeverGoBackwards(t *testing.T) {
	h := New(rate, nil, nil)
	c, err := h.Subscribe(telemetry.Native)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := uint32(1); i <= 500; i++ {
			h.Publish(frame(i))
		}
		h.Close(nil)
	}()

	var last uint32
	for {
		f, err := c.Next(ctxT(t))
		if err != nil {
			require.ErrorIs(t, err, telemetry.ErrSourceClosed)
			break
		}
		assert.Greater(t, f.Tick, last)
		last = f.Tick
	}
	<-done
	assert.Equal(t, uint32(500), last, "the final frame is drained before close is reported")
	st := c.Stats()
	assert.Equal(t, uint64(500), st.Delivered+st.Overwritten)
}

func TestMaxRateGatesOnFrameTime(t *testing.T) {
	h := New(rate, nil, nil)
	c, err := h.Subscribe(telemetry.Max(10))
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, c.interval)

	var got []*telemetry.RawFrame
	for i := uint32(0); i < 60; i++ {
		h.Publish(frame(i))
		f, ok := tryNext(t, c)
		if ok {
			got = append(got, f)
		}
	}

	require.Len(t, got, 10)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i].Time-got[i-1].Time, 100*time.Millisecond)
	}
	assert.Equal(t, uint64(50), c.Stats().Throttled)
}

// tryNext reads the frame just published, or reports that the gate held it.
func tryNext(t *testing.T, c *Cursor) (*telemetry.RawFrame, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	f, err := c.Next(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, false
	}
	require.NoError(t, err)
	return f, true
}

func TestMaxAboveTickRateIsNative(t *testing.T) {
	h := New(rate, nil, nil)
	c, err := h.Subscribe(telemetry.Max(120))
	require.NoError(t, err)
	assert.True(t, c.Rate().IsNative())
	assert.Zero(t, c.interval)
}

func TestInvalidRate(t *testing.T) {
	h := New(rate, nil, nil)
	_, err := h.Subscribe(telemetry.Max(-1))
	assert.ErrorIs(t, err, telemetry.ErrInvalidUpdateRate)
}

func TestEpochResetsGate(t *testing.T) {
	h := New(rate, nil, nil)
	c, err := h.Subscribe(telemetry.Max(1))
	require.NoError(t, err)

	h.Publish(epochFrame(0, 50))
	f, ok := tryNext(t, c)
	require.True(t, ok)
	assert.Equal(t, uint32(50), f.Tick)

	// A seek back to tick 3 starts a new epoch and is delivered immediately.
	h.Publish(epochFrame(1, 3))
	f, ok = tryNext(t, c)
	require.True(t, ok)
	assert.Equal(t, uint32(3), f.Tick)

	h.Publish(epochFrame(1, 4))
	_, ok = tryNext(t, c)
	assert.False(t, ok, "same epoch, inside the 1s window")
}

func TestSubscribeMidStreamStartsAtCurrent(t *testing.T) {
	h := New(rate, nil, nil)
	for i := uint32(1); i <= 5; i++ {
		h.Publish(frame(i))
	}
	c, err := h.Subscribe(telemetry.Native)
	require.NoError(t, err)

	f, err := c.Next(ctxT(t))
	require.NoError(t, err)
	assert.Equal(t, uint32(5), f.Tick)
	assert.Zero(t, c.Stats().Overwritten, "frames before the subscription are not counted")
}

func TestCloseIsolation(t *testing.T) {
	h := New(rate, nil, nil)
	a, err := h.Subscribe(telemetry.Native)
	require.NoError(t, err)
	b, err := h.Subscribe(telemetry.Native)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := a.Next(context.Background())
		errCh <- err
	}()
	a.Close()
	a.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, telemetry.ErrSubscriptionClosed)
		assert.NotErrorIs(t, err, telemetry.ErrSourceClosed)
	case <-time.After(time.Second):
		t.Fatal("Close did not unblock Next")
	}

	h.Publish(frame(1))
	f, err := b.Next(ctxT(t))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), f.Tick)

	_, err = a.Next(ctxT(t))
	assert.ErrorIs(t, err, telemetry.ErrSubscriptionClosed, "a pending frame is not delivered after Close")

	stats := h.Stats()
	require.Equal(t, 1, stats.Active())
	assert.Equal(t, b.ID(), stats.Subscribers[0].ID)
}

func TestHubClosePropagates(t *testing.T) {
	h := New(rate, nil, nil)
	cause := telemetry.Closed(telemetry.ErrDisconnected)

	const n = 4
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		c, err := h.Subscribe(telemetry.Native)
		require.NoError(t, err)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Next(context.Background())
		}(i)
	}
	sess := h.Sessions()

	h.Close(cause)
	h.Close(errors.New("ignored"))
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, telemetry.ErrSourceClosed)
		assert.ErrorIs(t, err, telemetry.ErrDisconnected)
	}
	_, err := sess.Next(ctxT(t))
	assert.ErrorIs(t, err, telemetry.ErrDisconnected)

	assert.False(t, h.Publish(frame(9)))
	_, err = h.Subscribe(telemetry.Native)
	assert.ErrorIs(t, err, telemetry.ErrSourceClosed)
	assert.ErrorIs(t, h.Cause(), telemetry.ErrDisconnected)
	assert.True(t, h.Stats().Closed)

	select {
	case <-h.Done():
	default:
		t.Fatal("Done not closed")
	}
}

func TestCleanCloseIsBareSourceClosed(t *testing.T) {
	h := New(rate, nil, nil)
	c, err := h.Subscribe(telemetry.Native)
	require.NoError(t, err)
	h.Close(nil)
	_, err = c.Next(ctxT(t))
	assert.Equal(t, telemetry.ErrSourceClosed, err)
	assert.NoError(t, h.Cause())
}

func TestContextCancel(t *testing.T) {
	h := New(rate, nil, nil)
	c, err := h.Subscribe(telemetry.Native)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func snapshot(rev int) *domain.SessionSnapshot {
	return &domain.SessionSnapshot{Info: telemetry.SessionInfo{Revision: rev, YAML: "x"}}
}

func TestSessionEmitsOnlyOnNewRevision(t *testing.T) {
	h := New(rate, nil, nil)
	h.PublishSession(snapshot(1))

	s := h.Sessions()
	got, err := s.Next(ctxT(t))
	require.NoError(t, err)
	assert.Equal(t, 1, got.Info.Revision, "first call returns the current snapshot")

	h.PublishSession(snapshot(1))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	_, err = s.Next(ctx)
	cancel()
	assert.ErrorIs(t, err, context.DeadlineExceeded, "same revision is not re-emitted")

	h.PublishSession(snapshot(3))
	got, err = s.Next(ctxT(t))
	require.NoError(t, err)
	assert.Equal(t, 3, got.Info.Revision)

	other := h.Sessions()
	got, err = other.Next(ctxT(t))
	require.NoError(t, err)
	assert.Equal(t, 3, got.Info.Revision, "each stream is independent")

	other.Close()
	_, err = other.Next(ctxT(t))
	assert.ErrorIs(t, err, telemetry.ErrSubscriptionClosed)
}

func TestStatsAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	h := New(rate, m, nil)
	c, err := h.Subscribe(telemetry.Native)
	require.NoError(t, err)
	h.Publish(frame(1))
	h.Publish(frame(2))
	h.PublishSession(snapshot(4))
	_, err = c.Next(ctxT(t))
	require.NoError(t, err)

	st := h.Stats()
	assert.Equal(t, uint64(2), st.Published)
	assert.Equal(t, uint64(1), st.SessionRevisions)
	assert.Equal(t, uint32(2), st.LastTick)
	require.Len(t, st.Subscribers, 1)
	assert.Equal(t, uint64(1), st.Subscribers[0].Dropped())
	assert.Equal(t, "native", st.Subscribers[0].Rate)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range mfs {
		for _, metric := range mf.GetMetric() {
			switch {
			case metric.Counter != nil:
				values[mf.GetName()] = metric.Counter.GetValue()
			case metric.Gauge != nil:
				values[mf.GetName()] = metric.Gauge.GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, values["pitwall_hub_frames_published_total"])
	assert.Equal(t, 1.0, values["pitwall_hub_frames_delivered_total"])
	assert.Equal(t, 1.0, values["pitwall_hub_frames_overwritten_total"])
	assert.Equal(t, 1.0, values["pitwall_hub_subscribers"])
	assert.Equal(t, 1.0, values["pitwall_session_revisions_total"])

	c.Close()
	assert.Zero(t, h.Stats().Active())
}
