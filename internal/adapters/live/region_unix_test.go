//go:build unix

package live

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/pitwall/pkg/telemetry"
)

func TestConnect_MissingMapping(t *testing.T) {
	_, err := Connect(context.Background(), Options{MappingPath: filepath.Join(t.TempDir(), "absent")})
	assert.ErrorIs(t, err, telemetry.ErrNoSessionFound)
	assert.ErrorIs(t, err, telemetry.ErrConnect)
}

func TestConnect_EmptyMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	_, err := Connect(context.Background(), Options{MappingPath: path})
	assert.ErrorIs(t, err, telemetry.ErrNoSessionFound)
}

func TestConnect_MappedFile(t *testing.T) {
	r := newMemRegion(t)
	r.write(2, 42, 7)
	path := filepath.Join(t.TempDir(), "IRSDKMemMapFileName")
	require.NoError(t, os.WriteFile(path, r.data, 0o600))

	s, err := Connect(context.Background(), Options{MappingPath: path})
	require.NoError(t, err)
	defer s.Close()

	f, err := s.NextTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(42), f.Tick)

	info, err := s.SessionInfo()
	require.NoError(t, err)
	assert.Contains(t, info.YAML, "Spa")

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
