package main

import (
	"context"
	"errors"
	"time"

	"github.com/bft-labs/pitwall/internal/cliconfig"
	"github.com/bft-labs/pitwall/pkg/log"
	"github.com/bft-labs/pitwall/pkg/pitwall"
	"github.com/bft-labs/pitwall/pkg/telemetry"
	"github.com/bft-labs/pitwall/plugins/configwatcher"
)

// followConfig applies edits to the config file while conn is streaming.
// Only the log level and the replay rate take effect without a restart.
// The returned stop function is never nil.
func (c *cli) followConfig(ctx context.Context, conn *pitwall.Connection) func() {
	if c.cfgFile == "" {
		return func() {}
	}
	w := configwatcher.New(configwatcher.Config{Path: c.cfgFile, Logger: c.logger},
		func(context.Context, string) { c.reload(conn) })
	if err := w.Start(ctx); err != nil {
		c.logger.Debug("config file not watched", log.Err(err))
		return func() {}
	}
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = w.Shutdown(shutdownCtx)
	}
}

func (c *cli) reload(conn *pitwall.Connection) {
	next, err := c.layer(c.current())
	if err != nil {
		c.logger.Warn("config reload rejected", log.Err(err))
		return
	}

	prev := c.swap(next)
	if next.LogLevel != prev.LogLevel {
		if err := cliconfig.SetLogLevel(next.LogLevel); err == nil {
			c.logger.Info("log level changed", log.String("level", next.LogLevel))
		}
	}
	if next.PlaybackRate != prev.PlaybackRate {
		err := conn.SetRate(next.PlaybackRate)
		switch {
		case errors.Is(err, telemetry.ErrNotReplay):
		case err != nil:
			c.logger.Warn("playback rate not changed", log.Err(err))
		default:
			c.logger.Info("playback rate changed", log.Float64("rate", next.PlaybackRate))
		}
	}
}

func (c *cli) current() cliconfig.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

func (c *cli) swap(next cliconfig.Config) cliconfig.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.cfg
	c.cfg = next
	return prev
}
