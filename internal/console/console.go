// Package console is the leveled logger shared by every typegen package.
// Messages are printf style; attributes stored in a context with Append are
// added to every record logged with that context.
package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	slogctx "github.com/veqryn/slog-context"
)

// Log writes printf style messages through slog.
type Log struct {
	// DebugLevel enables Debug messages when greater than zero.
	DebugLevel int

	level  *slog.LevelVar
	logger *slog.Logger
}

// Logger is the process wide logger.
var Logger = New(os.Stderr, false)

// New creates a logger writing tinted records to w.
func New(w io.Writer, noColor bool) *Log {
	level := &slog.LevelVar{}
	level.Set(slog.LevelDebug)

	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	})

	return &Log{
		level:  level,
		logger: slog.New(slogctx.NewHandler(handler, &slogctx.HandlerOptions{})),
	}
}

// SetQuiet drops everything below warnings.
func (l *Log) SetQuiet(quiet bool) {
	if quiet {
		l.level.Set(slog.LevelWarn)
		return
	}
	l.level.Set(slog.LevelDebug)
}

// Slog returns the underlying slog logger.
func (l *Log) Slog() *slog.Logger {
	return l.logger
}

func (l *Log) Debug(format string, args ...interface{}) {
	l.DebugContext(context.Background(), format, args...)
}

func (l *Log) DebugContext(ctx context.Context, format string, args ...interface{}) {
	if l.DebugLevel <= 0 {
		return
	}
	l.log(ctx, slog.LevelDebug, format, args...)
}

func (l *Log) Info(format string, args ...interface{}) {
	l.log(context.Background(), slog.LevelInfo, format, args...)
}

func (l *Log) InfoContext(ctx context.Context, format string, args ...interface{}) {
	l.log(ctx, slog.LevelInfo, format, args...)
}

func (l *Log) Warn(format string, args ...interface{}) {
	l.log(context.Background(), slog.LevelWarn, format, args...)
}

func (l *Log) Error(format string, args ...interface{}) {
	l.log(context.Background(), slog.LevelError, format, args...)
}

// Printf logs at debug level. It lets a Log serve as a Debugger.
func (l *Log) Printf(format string, v ...interface{}) {
	l.Debug(format, v...)
}

func (l *Log) log(ctx context.Context, level slog.Level, format string, args ...interface{}) {
	if !l.logger.Enabled(ctx, level) {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	l.logger.Log(ctx, level, msg)
}

// Append returns a context whose records carry attrs.
func Append(ctx context.Context, attrs ...any) context.Context {
	return slogctx.Append(ctx, attrs...)
}

// Printf logs through the process wide logger at debug level.
func Printf(format string, v ...interface{}) {
	Logger.Printf(format, v...)
}
