package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestPlugin_ReloadsOnceAfterBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	var calls atomic.Int32
	p := New(Config{Path: path, DebounceDelay: 50 * time.Millisecond}, func(_ context.Context, got string) {
		if got != path {
			t.Errorf("handler path = %q, want %q", got, path)
		}
		calls.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer p.Shutdown(context.Background())

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("rate = 2.0\n"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Neighbouring files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if !waitFor(t, func() bool { return calls.Load() > 0 }) {
		t.Fatal("handler was not called")
	}
	time.Sleep(150 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("handler called %d times, want 1", n)
	}
}

func TestPlugin_ShutdownDropsPending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	var calls atomic.Int32
	p := New(Config{Path: path, DebounceDelay: 200 * time.Millisecond}, func(context.Context, string) {
		calls.Add(1)
	})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Errorf("handler called %d times after shutdown, want 0", n)
	}
}

func TestPlugin_StartErrors(t *testing.T) {
	noop := func(context.Context, string) {}
	tests := []struct {
		name    string
		cfg     Config
		handler Handler
	}{
		{"no path", Config{}, noop},
		{"nil handler", Config{Path: filepath.Join(t.TempDir(), "c.toml")}, nil},
		{"missing directory", Config{Path: filepath.Join(t.TempDir(), "missing", "c.toml")}, noop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := New(tt.cfg, tt.handler).Start(context.Background()); err == nil {
				t.Error("Start() expected error")
			}
		})
	}
}

func TestPlugin_Name(t *testing.T) {
	if got := New(DefaultConfig(), nil).Name(); got != "configwatcher" {
		t.Errorf("Name() = %q", got)
	}
}
