package pitwall_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/pitwall"
	"github.com/bft-labs/pitwall/pkg/decode"
	"github.com/bft-labs/pitwall/pkg/ibt/ibttest"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

type engine struct{ RPM float32 }

func TestReExports(t *testing.T) {
	conn, err := pitwall.OpenReplay(ibttest.SpeedRPM(t, 10), pitwall.WithStartPaused(), pitwall.WithUnpaced())
	require.NoError(t, err)
	defer conn.Close()

	sub, err := pitwall.Subscribe(conn, decode.NewMapping[engine](
		decode.Float32("RPM", "", func(e *engine, v float32) { e.RPM = v }),
	), pitwall.Native)
	require.NoError(t, err)
	require.NoError(t, conn.Resume())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var last uint32
	for {
		f, err := sub.Next(ctx)
		if err != nil {
			assert.ErrorIs(t, err, telemetry.ErrSourceClosed)
			break
		}
		last = f.Tick
		assert.Equal(t, 1000+float32(f.Tick), f.Value.RPM)
	}
	assert.Equal(t, uint32(9), last)
	assert.NotEmpty(t, pitwall.Version)
}
