// Package logging sets up the structured run log. Console output stays on
// pterm; slog records go to a file so CI can keep a machine readable trail of
// each setup run.
package logging

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Init configures the global slog default to write JSON records to path,
// rotated by lumberjack. An empty path discards records. The returned closer
// flushes and closes the file.
func Init(path string, level slog.Level) io.Closer {
	if path == "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(io.Discard, nil)))
		return nopCloser{}
	}
	w := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	InitWriter(w, level)
	return w
}

// InitWriter configures the global slog default to write JSON records to w.
func InitWriter(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})))
}

// New returns a logger with a "component" attribute for module-scoped logging.
func New(component string) *slog.Logger {
	return slog.Default().With(slog.String("component", component))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
