package cliconfig

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bft-labs/pitwall/pkg/log"
)

// Rotation limits for --log-file.
const (
	logMaxSizeMB  = 50
	logMaxBackups = 5
	logMaxAgeDays = 28
)

// NewLogger builds the CLI logger. Without a log file it writes a console
// format to stderr; with one it writes JSON lines into a rotating file.
// The returned closer releases the file and is never nil.
//
// The level is applied process-wide so SetLogLevel can change it later.
func NewLogger(cfg Config) (*log.ZerologAdapter, io.Closer, error) {
	if err := SetLogLevel(cfg.LogLevel); err != nil {
		return nil, nil, err
	}

	if cfg.LogFile == "" {
		out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		l := zerolog.New(out).With().Timestamp().Logger()
		return log.NewZerologAdapterWithLogger(l), io.NopCloser(nil), nil
	}

	file := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
		Compress:   true,
	}
	l := zerolog.New(file).With().Timestamp().Logger()
	return log.NewZerologAdapterWithLogger(l), file, nil
}

// SetLogLevel changes the level of every logger built by NewLogger.
func SetLogLevel(level string) error {
	l, err := zerolog.ParseLevel(level)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(l)
	return nil
}
