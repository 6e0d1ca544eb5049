package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/pitwall/internal/cliconfig"
	"github.com/bft-labs/pitwall/pkg/ibt"
	"github.com/bft-labs/pitwall/pkg/ibt/ibttest"
	"github.com/bft-labs/pitwall/pkg/log"
	"github.com/bft-labs/pitwall/pkg/pitwall"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// dashRecording writes n frames carrying Speed, RPM and Gear.
func dashRecording(t *testing.T, n int) string {
	t.Helper()
	frames := make([][]byte, n)
	for i := range frames {
		b := make([]byte, 12)
		binary.LittleEndian.PutUint32(b[0:], math.Float32bits(float32(i)))
		binary.LittleEndian.PutUint32(b[4:], math.Float32bits(3000+float32(i)))
		binary.LittleEndian.PutUint32(b[8:], uint32(i%6+1))
		frames[i] = b
	}
	return ibttest.Write(t, ibttest.Recording{
		Vars: []telemetry.Variable{
			{Name: "Speed", Unit: "m/s", Type: telemetry.TypeFloat, Offset: 0, Count: 1},
			{Name: "RPM", Unit: "revs/min", Type: telemetry.TypeFloat, Offset: 4, Count: 1},
			{Name: "Gear", Type: telemetry.TypeInt, Offset: 8, Count: 1},
		},
		BufLen:   12,
		Frames:   frames,
		TickRate: 60,
	})
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	c := &cli{cfg: cliconfig.DefaultConfig(), logger: log.NewConsoleAdapter(&bytes.Buffer{}), out: &out}
	root := newRootCmd(c)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVars(t *testing.T) {
	path := dashRecording(t, 3)
	out, err := run(t, "vars", path)
	require.NoError(t, err)
	assert.Contains(t, out, "3 variables, 3 frames at 60 Hz")
	assert.Contains(t, out, "Gear")
	assert.Regexp(t, `RPM\s+float32\s+1\s+revs/min`, out)
}

func TestSessionFromFile(t *testing.T) {
	out, err := run(t, "session", dashRecording(t, 1))
	require.NoError(t, err)
	assert.Contains(t, out, "Circuit de Spa-Francorchamps")
	assert.Contains(t, out, "Test Driver")
}

func TestSessionNeedsSource(t *testing.T) {
	_, err := run(t, "session")
	assert.Error(t, err)
}

func TestReplayPrintsFrames(t *testing.T) {
	out, err := run(t, "replay", dashRecording(t, 30), "--rate", "10")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	last := strings.Fields(lines[len(lines)-1])
	assert.Equal(t, "29", last[0], "the final frame is always delivered")
	assert.Contains(t, out, "3029 rpm")
}

func TestReplayMissingGear(t *testing.T) {
	_, err := run(t, "replay", ibttest.SpeedRPM(t, 5))
	assert.ErrorIs(t, err, telemetry.ErrMissingRequiredVariable)
}

func TestRecordTrimsReplay(t *testing.T) {
	src := dashRecording(t, 40)
	dst := filepath.Join(t.TempDir(), "trimmed.ibt")

	_, err := run(t, "record", src, "--out", dst, "--from", "5", "--to", "14")
	require.NoError(t, err)

	r, err := ibt.Open(dst)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 10, r.Len())
	assert.Equal(t, 60.0, r.TickRate())
	assert.Equal(t, ibttest.DefaultSessionYAML, r.SessionYAML())

	frame, err := r.ReadFrame(0, nil)
	require.NoError(t, err)
	assert.Equal(t, float32(5), math.Float32frombits(binary.LittleEndian.Uint32(frame)))
}

func TestRecordTrimOutOfRange(t *testing.T) {
	_, err := run(t, "record", dashRecording(t, 4), "--out", filepath.Join(t.TempDir(), "x.ibt"), "--from", "9")
	assert.ErrorIs(t, err, telemetry.ErrSeekOutOfRange)
}

func TestRecordRequiresOut(t *testing.T) {
	_, err := run(t, "record", dashRecording(t, 1))
	assert.Error(t, err)
}

func TestSummarise(t *testing.T) {
	var out bytes.Buffer
	c := &cli{cfg: cliconfig.DefaultConfig(), logger: log.NewConsoleAdapter(&bytes.Buffer{}), out: &out}
	path := dashRecording(t, 120)
	require.NoError(t, c.summarise(path))
	assert.Contains(t, out.String(), "120 frames (2s)")
	assert.Contains(t, out.String(), "Practice")
}

func TestExplicitConfigMustExist(t *testing.T) {
	_, err := run(t, "vars", dashRecording(t, 1), "--config", filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestReloadAppliesFileChanges(t *testing.T) {
	defer cliconfig.SetLogLevel("info")

	cfgFile := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("rate = 4.0\nlog_level = \"warn\"\n"), 0o644))

	c := &cli{
		cfg:     cliconfig.DefaultConfig(),
		cfgFile: cfgFile,
		changed: map[string]bool{},
		logger:  log.NewConsoleAdapter(&bytes.Buffer{}),
		out:     &bytes.Buffer{},
	}
	conn, err := pitwall.OpenReplay(dashRecording(t, 5), pitwall.WithStartPaused())
	require.NoError(t, err)
	defer conn.Close()

	c.reload(conn)
	assert.Equal(t, 4.0, c.current().PlaybackRate)
	assert.Equal(t, "warn", c.current().LogLevel)
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	// An invalid edit keeps the running configuration.
	require.NoError(t, os.WriteFile(cfgFile, []byte("rate = 40.0\n"), 0o644))
	c.reload(conn)
	assert.Equal(t, 4.0, c.current().PlaybackRate)

	// Flags given on the command line still win.
	c.changed["rate"] = true
	require.NoError(t, os.WriteFile(cfgFile, []byte("rate = 0.5\n"), 0o644))
	c.reload(conn)
	assert.Equal(t, 4.0, c.current().PlaybackRate)
}
