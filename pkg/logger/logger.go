// Package logger builds the application's structured logger and carries
// correlation identifiers through contexts.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures logger construction.
type Options struct {
	Level  string
	Format string

	// FilePath enables rotating file output alongside stdout when set.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	SentryEnabled bool
}

// LevelVar is the mutable level shared with the config watcher so log level
// changes apply without restart.
var LevelVar = new(slog.LevelVar)

// New constructs the application logger. Records flow through the masking
// handler first; warnings and above are mirrored to sentry when enabled.
func New(opts Options) *slog.Logger {
	LevelVar.Set(ParseLevel(opts.Level))

	var out io.Writer = os.Stdout
	if opts.FilePath != "" {
		rotating := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotating)
	}

	handlerOpts := &slog.HandlerOptions{Level: LevelVar}

	var base slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		base = slog.NewTextHandler(out, handlerOpts)
	} else {
		base = slog.NewJSONHandler(out, handlerOpts)
	}

	if opts.SentryEnabled {
		base = slogmulti.Fanout(
			base,
			slogsentry.Option{Level: slog.LevelWarn}.NewSentryHandler(),
		)
	}

	log := slog.New(NewMaskingHandler(base))
	slog.SetDefault(log)

	return log
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
