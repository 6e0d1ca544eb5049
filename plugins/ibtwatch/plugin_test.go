package ibtwatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) handle(_ context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestWatcher_ReportsSettledRecordingOnce(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := New(Config{Dir: dir, DebounceDelay: 50 * time.Millisecond}, rec.handle)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Shutdown(context.Background())

	path := filepath.Join(dir, "stint.ibt")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := f.Write([]byte("frame")); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	f.Close()

	// Other files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.got()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	got := rec.got()
	if len(got) != 1 {
		t.Fatalf("handler called %d times (%v), want 1", len(got), got)
	}
	if got[0] != path {
		t.Errorf("path = %q, want %q", got[0], path)
	}
}

func TestWatcher_ExistingFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.ibt", "b.IBT", "c.log"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	rec := &recorder{}
	w := New(Config{Dir: dir, Existing: true}, rec.handle)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Shutdown(context.Background())

	if got := rec.got(); len(got) != 2 {
		t.Errorf("existing recordings = %v, want 2", got)
	}
}

func TestWatcher_RemovedBeforeSettling(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := New(Config{Dir: dir, DebounceDelay: 100 * time.Millisecond}, rec.handle)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Shutdown(context.Background())

	path := filepath.Join(dir, "tmp.ibt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	time.Sleep(250 * time.Millisecond)

	if got := rec.got(); len(got) != 0 {
		t.Errorf("handler called for removed file: %v", got)
	}
}

func TestWatcher_StartErrors(t *testing.T) {
	rec := &recorder{}
	if err := New(Config{}, rec.handle).Start(context.Background()); err == nil {
		t.Error("Start with no directory should fail")
	}
	if err := New(Config{Dir: filepath.Join(t.TempDir(), "missing")}, rec.handle).Start(context.Background()); err == nil {
		t.Error("Start on a missing directory should fail")
	}
	if err := New(Config{Dir: t.TempDir()}, nil).Start(context.Background()); err == nil {
		t.Error("Start with nil handler should fail")
	}
}

func TestWatcher_Name(t *testing.T) {
	if got := New(DefaultConfig(), nil).Name(); got != "ibtwatch" {
		t.Errorf("Name() = %q", got)
	}
}
