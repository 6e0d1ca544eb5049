// Package ibtwatch watches a directory for finished .ibt recordings.
// The simulator writes a telemetry file for the whole stint; a file is
// reported once it has gone quiet for the debounce delay.
package ibtwatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/pitwall/pkg/log"
)

// Handler is called once per settled recording, from a timer goroutine.
type Handler func(ctx context.Context, path string)

// Config holds configuration options for the watcher.
type Config struct {
	// Dir is the directory to watch. Required.
	Dir string

	// DebounceDelay is how long a file must be quiet before it is reported.
	// Default: 2 seconds
	DebounceDelay time.Duration

	// Existing reports the recordings already present when Start is called.
	Existing bool

	Logger log.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 2 * time.Second,
	}
}

// Watcher reports new .ibt files in a directory.
type Watcher struct {
	mu sync.Mutex

	dir      string
	debounce time.Duration
	existing bool
	handler  Handler
	logger   log.Logger

	pending map[string]*time.Timer
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a watcher. handler must not be nil.
func New(cfg Config, handler Handler) *Watcher {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 2 * time.Second
	}
	return &Watcher{
		dir:      cfg.Dir,
		debounce: cfg.DebounceDelay,
		existing: cfg.Existing,
		handler:  handler,
		logger:   log.OrNoop(cfg.Logger),
		pending:  make(map[string]*time.Timer),
	}
}

// Name returns the plugin identifier.
func (w *Watcher) Name() string {
	return "ibtwatch"
}

// Start begins watching. It returns once the directory watch is in place.
func (w *Watcher) Start(ctx context.Context) error {
	if w.dir == "" {
		return errors.New("ibtwatch: directory not configured")
	}
	if w.handler == nil {
		return errors.New("ibtwatch: handler is nil")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("ibtwatch: create watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("ibtwatch: watch %s: %w", w.dir, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	if w.existing {
		w.scan(watchCtx)
	}

	w.logger.Info("watching for recordings", log.String("dir", w.dir))

	w.wg.Add(1)
	go w.watchLoop(watchCtx, fw)
	return nil
}

// Shutdown stops the watcher and drops recordings that have not settled.
func (w *Watcher) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Watcher) watchLoop(ctx context.Context, fw *fsnotify.Watcher) {
	defer w.wg.Done()
	defer fw.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if !isRecording(event.Name) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
				w.touch(ctx, event.Name)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.forget(event.Name)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", log.Err(err))
		}
	}
}

// touch restarts the quiet period for path.
func (w *Watcher) touch(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.logger.Debug("recording settled", log.String("path", path))
		w.handler(ctx, path)
	})
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) scan(ctx context.Context) {
	ents, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("initial scan failed", log.Err(err))
		return
	}
	for _, e := range ents {
		if e.Type().IsRegular() && isRecording(e.Name()) {
			w.handler(ctx, filepath.Join(w.dir, e.Name()))
		}
	}
}

func isRecording(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".ibt")
}
