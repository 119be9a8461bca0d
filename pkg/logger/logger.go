package logx

import (
	"io"
	"os"
	"strings"

	"github.com/echolag-barista/server/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
}

type LoggerOpts struct {
	Environment core.Environment
	// Level overrides the environment default when it names a valid zerolog level.
	Level string
	// Output defaults to stderr (console writer outside production).
	Output io.Writer
}

func safe(otps ...LoggerOpts) *LoggerOpts {
	if len(otps) == 0 {
		return DefaultLoggerOpts
	}
	return &otps[0]
}

func Init(otps ...LoggerOpts) {
	opts := safe(otps...)
	out := opts.Output

	level := zerolog.DebugLevel
	if opts.Environment.IsProduction() {
		if out == nil {
			out = os.Stderr
		}
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
		level = zerolog.InfoLevel
	} else {
		if out == nil {
			out = zerolog.NewConsoleWriter()
		}
		log.Logger = zerolog.New(out).With().Timestamp().Caller().Logger()
	}

	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level))); err == nil && opts.Level != "" {
		level = parsed
	}
	log.Logger = log.Logger.Level(level)
}

// Disable silences all output; used by tests.
func Disable() {
	log.Logger = zerolog.Nop()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Panic() *zerolog.Event {
	return log.Panic()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
