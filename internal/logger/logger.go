// internal/logger/logger.go
package logger

import (
	"io"
	"os"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls where and how verbosely the global logger writes.
type Options struct {
	Level      string
	Pretty     bool
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init configures the global zerolog logger.
func Init(opts Options) {
	log.Logger = New(opts, os.Stderr)

	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

// New builds a logger writing to out, plus a rotating file when opts.FilePath is set.
func New(opts Options, out io.Writer) zerolog.Logger {
	var console io.Writer = out
	if opts.Pretty {
		// Human-readable, colorized output in development
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	writer := console
	if opts.FilePath != "" {
		file := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		writer = zerolog.MultiLevelWriter(console, file)
	}

	// Include the caller's file and line number
	return zerolog.New(writer).With().Timestamp().Caller().Logger()
}
