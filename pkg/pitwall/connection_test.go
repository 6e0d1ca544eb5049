package pitwall

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/pitwall/pkg/ibt/ibttest"
	"github.com/bft-labs/pitwall/pkg/lifecycle"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// stubSource has no transport. It emits frames from next until it returns
// an error.
type stubSource struct {
	header *telemetry.VariableHeader
	next   func(ctx context.Context) (*telemetry.RawFrame, error)
	info   error
	closed bool
}

func newStub(t *testing.T, next func(ctx context.Context) (*telemetry.RawFrame, error)) *stubSource {
	vh, err := telemetry.NewVariableHeader(ibttest.SpeedRPMVars(), 8)
	require.NoError(t, err)
	return &stubSource{header: vh, next: next}
}

func (s *stubSource) Header() *telemetry.VariableHeader { return s.header }
func (s *stubSource) TickRate() float64                 { return 60 }
func (s *stubSource) Close() error                      { s.closed = true; return nil }
func (s *stubSource) SessionInfo() (telemetry.SessionInfo, error) {
	return telemetry.SessionInfo{Revision: 1, YAML: ibttest.DefaultSessionYAML}, s.info
}
func (s *stubSource) NextTick(ctx context.Context) (*telemetry.RawFrame, error) {
	return s.next(ctx)
}

func blockUntilCanceled(ctx context.Context) (*telemetry.RawFrame, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTransportRequiresReplay(t *testing.T) {
	src := newStub(t, blockUntilCanceled)
	c, err := start(src, defaultOptions())
	require.NoError(t, err)
	defer c.Close()

	assert.ErrorIs(t, c.Pause(), telemetry.ErrNotReplay)
	assert.ErrorIs(t, c.Resume(), telemetry.ErrNotReplay)
	assert.ErrorIs(t, c.Seek(0), telemetry.ErrNotReplay)
	assert.ErrorIs(t, c.SetRate(2), telemetry.ErrNotReplay)
	_, err = c.Position()
	assert.ErrorIs(t, err, telemetry.ErrNotReplay)
	_, err = c.Len()
	assert.ErrorIs(t, err, telemetry.ErrReplay)
	assert.False(t, c.Paused())
}

func TestSourceFailureCrashes(t *testing.T) {
	boom := errors.New("read failed")
	src := newStub(t, func(context.Context) (*telemetry.RawFrame, error) { return nil, boom })
	c, err := start(src, defaultOptions())
	require.NoError(t, err)

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("connection did not end")
	}
	assert.Equal(t, lifecycle.StateCrashed, c.State())
	assert.ErrorIs(t, c.Err(), boom)
	assert.ErrorIs(t, c.Err(), telemetry.ErrSourceClosed)

	sub, err := SubscribeRaw(c, telemetry.Native)
	assert.Nil(t, sub)
	assert.ErrorIs(t, err, boom)

	require.NoError(t, c.Close())
	assert.True(t, src.closed)
}

func TestDisconnectStopsCleanly(t *testing.T) {
	src := newStub(t, func(context.Context) (*telemetry.RawFrame, error) {
		return nil, telemetry.Closed(telemetry.ErrDisconnected)
	})
	c, err := start(src, defaultOptions())
	require.NoError(t, err)
	<-c.Done()

	assert.Equal(t, lifecycle.StateStopped, c.State())
	assert.ErrorIs(t, c.Err(), telemetry.ErrDisconnected)
	require.NoError(t, c.Close())
}

func TestInitialSessionFailure(t *testing.T) {
	src := newStub(t, blockUntilCanceled)
	src.info = errors.New("no session")
	_, err := start(src, defaultOptions())
	assert.EqualError(t, err, "no session")
	assert.True(t, src.closed)
}

func TestIsVersionCompatible(t *testing.T) {
	tests := []struct {
		version, min string
		want         bool
	}{
		{"1.0.0", "1.0.0", true},
		{"1.2.0", "1.1.9", true},
		{"2.0.0", "1.9.9", true},
		{"1.0.0", "1.0.1", false},
		{"0.9.0", "1.0.0", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isVersionCompatible(tt.version, tt.min), "%s >= %s", tt.version, tt.min)
	}
	assert.NoError(t, validateModuleVersions())
}
