// Package configwatcher reloads a configuration file when it changes.
// It watches the file's directory so editors that save by renaming a
// temporary file over the original are still noticed.
package configwatcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/pitwall/pkg/log"
)

// Handler is called after the file has been written and stayed unchanged
// for the debounce delay.
type Handler func(ctx context.Context, path string)

// Plugin implements config watching functionality.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	handler       Handler
	logger        log.Logger

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the configuration file to watch.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	Logger log.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{DebounceDelay: 100 * time.Millisecond}
}

// New creates a new config watcher with the given configuration.
func New(cfg Config, handler Handler) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          filepath.Clean(cfg.Path),
		debounceDelay: cfg.DebounceDelay,
		handler:       handler,
		logger:        log.OrNoop(cfg.Logger),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Start begins watching. The file itself need not exist yet, but its
// directory must.
func (p *Plugin) Start(ctx context.Context) error {
	if p.path == "" || p.path == "." {
		return errors.New("configwatcher: path not configured")
	}
	if p.handler == nil {
		return errors.New("configwatcher: handler is nil")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("configwatcher: create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(p.path)); err != nil {
		fw.Close()
		return fmt.Errorf("configwatcher: watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.logger.Debug("watching config file", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, fw)
	return nil
}

// Shutdown stops the config watcher. A pending reload is dropped.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Plugin) watchLoop(ctx context.Context, fw *fsnotify.Watcher) {
	defer p.wg.Done()
	defer fw.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.logger.Info("config file changed", log.String("path", p.path))
		p.handler(ctx, p.path)
	})
}
