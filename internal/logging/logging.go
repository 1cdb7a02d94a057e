// Package logging holds the process-wide structured logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Logger is the public logger instance accessible from all packages.
// It discards everything until Initialize is called.
var Logger = slog.New(slog.DiscardHandler)

// Options controls Initialize.
type Options struct {
	Level  string // debug, info, warn, error; "" disables logging unless File is set
	Format string // text or json
	File   string // log file path; "" writes to stderr
}

// Initialize replaces Logger according to opts. The returned closer releases
// the log file, if one was opened.
func Initialize(opts Options) (io.Closer, error) {
	if v := os.Getenv("CLOUDMANAGER_DEBUG"); v == "1" && opts.Level == "" {
		opts.Level = "debug"
	}

	if opts.Level == "" && opts.File == "" {
		Logger = slog.New(slog.DiscardHandler)
		return nopCloser{}, nil
	}

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closer = f
	}

	Logger = New(opts.Level, opts.Format, out)
	Logger.Debug("Logging initialized", "level", opts.Level, "file", opts.File)
	return closer, nil
}

// New builds a logger without touching the package-level Logger.
func New(level, format string, w io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
