// Package logger configures the global zerolog logger from command line options.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger holds logging options, embedded as a go-flags group.
type Logger struct {
	Level   string `long:"log-level"    env:"LOG_LEVEL"    description:"Log level" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
	Format  string `long:"log-format"   env:"LOG_FORMAT"   description:"Log output format" choice:"text" choice:"json" default:"text"`
	File    string `long:"log-file"     env:"LOG_FILE"     description:"Also write JSON logs to a rotated file"`
	MaxSize int    `long:"log-max-size" env:"LOG_MAX_SIZE" description:"Rotate the log file after this many megabytes" default:"32"`
	NoColor bool   `long:"log-no-color" env:"NO_COLOR"     description:"Disable colored text output"`
}

// ParseLevel converts a level name into a zerolog level. Empty means info.
func ParseLevel(level string) (zerolog.Level, error) {
	if level == "" {
		return zerolog.InfoLevel, nil
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
	return lvl, nil
}

// New builds a logger writing to w and, if File is set, to a rotated log file.
func (l Logger) New(w io.Writer) (zerolog.Logger, error) {
	lvl, err := ParseLevel(l.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	out := w
	if l.Format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    l.NoColor,
			TimeFormat: time.DateTime,
		}
	}

	if l.File != "" {
		maxSize := l.MaxSize
		if maxSize <= 0 {
			maxSize = 32
		}
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   l.File,
			MaxSize:    maxSize, // MB
			MaxBackups: 3,
			Compress:   true,
		})
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// Setup replaces the global logger. Invalid options fall back to info level on stderr.
func (l Logger) Setup() {
	logger, err := l.New(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		l.Level = ""
		logger, _ = l.New(os.Stderr)
	}

	zerolog.SetGlobalLevel(logger.GetLevel())
	log.Logger = logger
}
