// Package ibttest builds small .ibt recordings for tests.
package ibttest

import (
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"github.com/bft-labs/pitwall/pkg/ibt"
	"github.com/bft-labs/pitwall/pkg/telemetry"
)

// DefaultSessionYAML is a minimal session document accepted by pkg/session.
const DefaultSessionYAML = `---
WeekendInfo:
 TrackName: spa 2024 gp
 TrackID: 163
 TrackLength: 6.93 km
 TrackDisplayName: Circuit de Spa-Francorchamps
SessionInfo:
 CurrentSessionNum: 0
 Sessions:
 - SessionNum: 0
   SessionLaps: unlimited
   SessionTime: 600.0000 sec
   SessionType: Practice
DriverInfo:
 DriverCarIdx: 0
 Drivers:
 - CarIdx: 0
   UserName: Test Driver
   CarNumber: "7"
...
`

// Recording describes a file to write.
type Recording struct {
	Vars     []telemetry.Variable
	BufLen   int
	Frames   [][]byte
	TickRate int
	// SessionYAML defaults to DefaultSessionYAML. Set NoSession to omit it.
	SessionYAML string
	NoSession   bool
	Revision    int
}

// Write writes rec into a fresh file under t.TempDir and returns its path.
func Write(t testing.TB, rec Recording) string {
	t.Helper()
	vh, err := telemetry.NewVariableHeader(rec.Vars, rec.BufLen)
	if err != nil {
		t.Fatalf("variable header: %v", err)
	}
	yaml := rec.SessionYAML
	if yaml == "" && !rec.NoSession {
		yaml = DefaultSessionYAML
	}
	path := filepath.Join(t.TempDir(), "fixture.ibt")
	w, err := ibt.Create(path, vh, ibt.WriterOptions{
		TickRate:        rec.TickRate,
		SessionYAML:     yaml,
		SessionRevision: rec.Revision,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i, f := range rec.Frames {
		if err := w.WriteFrame(f); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

// SpeedRPMVars declares Speed float32@0 and RPM float32@4.
func SpeedRPMVars() []telemetry.Variable {
	return []telemetry.Variable{
		{Name: "Speed", Unit: "m/s", Type: telemetry.TypeFloat, Offset: 0, Count: 1},
		{Name: "RPM", Unit: "revs/min", Type: telemetry.TypeFloat, Offset: 4, Count: 1},
	}
}

// SpeedRPMFrame encodes one 8-byte frame of the SpeedRPMVars layout.
func SpeedRPMFrame(speed, rpm float32) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(speed))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(rpm))
	return b
}

// SpeedRPM writes n frames at 60 Hz where frame i carries Speed=i*0.5 and RPM=1000+i.
func SpeedRPM(t testing.TB, n int) string {
	t.Helper()
	frames := make([][]byte, n)
	for i := range frames {
		frames[i] = SpeedRPMFrame(float32(i)*0.5, 1000+float32(i))
	}
	return Write(t, Recording{
		Vars:     SpeedRPMVars(),
		BufLen:   8,
		Frames:   frames,
		TickRate: 60,
	})
}
