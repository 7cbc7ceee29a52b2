// Package dwlog wraps github.com/charmbracelet/log into the single
// leveled, structured logger every df1d process shares. Per-connection
// and per-client context is attached with With(...) instead of being
// folded into format strings.
package dwlog

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Logger adapts a *log.Logger to the df1.Logger interface the core
// engine depends on.
type Logger struct {
	l *log.Logger
}

// New builds a logger writing to w at the given level. cmd/df1d calls
// this once at startup, with the level taken from its -d flag.
func New(w io.Writer, level log.Level) *Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	return &Logger{l: l}
}

// Default returns a logger writing to stderr at Info level.
func Default() *Logger {
	return New(os.Stderr, log.InfoLevel)
}

// With returns a child logger with the given key/value pairs attached
// to every subsequent record, e.g. log.With("conn", name, "client", addr).
func (lg *Logger) With(keyvals ...any) *Logger {
	return &Logger{l: lg.l.With(keyvals...)}
}

func (lg *Logger) Debugf(format string, args ...any) { lg.l.Debugf(format, args...) }
func (lg *Logger) Infof(format string, args ...any)  { lg.l.Infof(format, args...) }
func (lg *Logger) Warnf(format string, args ...any)  { lg.l.Warnf(format, args...) }
func (lg *Logger) Errorf(format string, args ...any) { lg.l.Errorf(format, args...) }
