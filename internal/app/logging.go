package app

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Nixie-Tech-LLC/salah/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogger replaces the global zerolog logger according to cfg. The
// returned closer flushes the log file, if any.
func SetupLogger(cfg *config.Config) io.Closer {
	logger, closer := newLogger(cfg, os.Stderr)
	log.Logger = logger
	return closer
}

func newLogger(cfg *config.Config, stderr io.Writer) (zerolog.Logger, io.Closer) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := stderr
	if cfg.Development() {
		out = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
	}

	var closer io.Closer = nopCloser{}
	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, file)
		closer = file
	}

	return zerolog.New(out).With().Timestamp().Logger(), closer
}
