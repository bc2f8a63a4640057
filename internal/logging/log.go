// Package logging provides the process-wide structured logger used across
// modelgate. It is a thin facade over log/slog with leveled formatting
// helpers, field chaining, and switchable output.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"
)

var (
	defaultLogger *slog.Logger
	logLevel                = new(slog.LevelVar)
	logOutput     io.Writer = os.Stderr
	outputMu      sync.RWMutex
	initOnce      sync.Once
	nowFunc       = time.Now
)

// Fields is a convenience alias for attaching multiple attributes at once.
type Fields map[string]any

const (
	DebugLevel = slog.LevelDebug
	InfoLevel  = slog.LevelInfo
	WarnLevel  = slog.LevelWarn
	ErrorLevel = slog.LevelError
)

func init() {
	initOnce.Do(func() {
		logLevel.Set(slog.LevelInfo)
		defaultLogger = slog.New(newTextHandler(os.Stderr, logLevel, true))
	})
}

func reconfigure(w io.Writer, addSource bool) {
	outputMu.Lock()
	defer outputMu.Unlock()
	logOutput = w
	defaultLogger = slog.New(newTextHandler(w, logLevel, addSource))
}

// SetOutput redirects all subsequent log records to w.
func SetOutput(w io.Writer) {
	reconfigure(w, true)
}

// SetLevel adjusts the minimum level that will be emitted.
func SetLevel(level slog.Level) {
	logLevel.Set(level)
}

// GetLevel returns the current minimum level.
func GetLevel() slog.Level {
	return logLevel.Level()
}

func Debug(msg string)                  { logAt(slog.LevelDebug, msg, nil) }
func Debugf(format string, args ...any) { logAt(slog.LevelDebug, fmt.Sprintf(format, args...), nil) }
func Info(msg string)                   { logAt(slog.LevelInfo, msg, nil) }
func Infof(format string, args ...any)  { logAt(slog.LevelInfo, fmt.Sprintf(format, args...), nil) }
func Warn(msg string)                   { logAt(slog.LevelWarn, msg, nil) }
func Warnf(format string, args ...any)  { logAt(slog.LevelWarn, fmt.Sprintf(format, args...), nil) }
func Error(msg string)                  { logAt(slog.LevelError, msg, nil) }
func Errorf(format string, args ...any) { logAt(slog.LevelError, fmt.Sprintf(format, args...), nil) }

// Fatal logs at error level, runs exit handlers, and terminates the process.
func Fatal(msg string) {
	logAt(slog.LevelError, msg, nil)
	runExitHandlers()
	os.Exit(1)
}

func Fatalf(format string, args ...any) {
	logAt(slog.LevelError, fmt.Sprintf(format, args...), nil)
	runExitHandlers()
	os.Exit(1)
}

func logAt(level slog.Level, msg string, attrs []slog.Attr) {
	if !defaultLogger.Enabled(context.Background(), level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(nowFunc(), level, msg, pcs[0])
	if len(attrs) > 0 {
		r.AddAttrs(attrs...)
	}
	_ = defaultLogger.Handler().Handle(context.Background(), r)
}

// Entry accumulates attributes before emitting a record.
type Entry struct {
	attrs []slog.Attr
}

// WithError starts an entry carrying an error attribute.
func WithError(err error) *Entry {
	return &Entry{attrs: []slog.Attr{slog.Any("error", err)}}
}

// WithField starts an entry carrying one attribute.
func WithField(key string, value any) *Entry {
	return &Entry{attrs: []slog.Attr{slog.Any(key, value)}}
}

// WithFields starts an entry carrying several attributes.
func WithFields(fields Fields) *Entry {
	attrs := make([]slog.Attr, 0, len(fields))
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	return &Entry{attrs: attrs}
}

func (e *Entry) WithField(key string, value any) *Entry {
	e.attrs = append(e.attrs, slog.Any(key, value))
	return e
}

func (e *Entry) WithError(err error) *Entry {
	e.attrs = append(e.attrs, slog.Any("error", err))
	return e
}

func (e *Entry) Debug(msg string)                  { e.logAt(slog.LevelDebug, msg) }
func (e *Entry) Debugf(format string, args ...any) { e.logAt(slog.LevelDebug, fmt.Sprintf(format, args...)) }
func (e *Entry) Info(msg string)                   { e.logAt(slog.LevelInfo, msg) }
func (e *Entry) Infof(format string, args ...any)  { e.logAt(slog.LevelInfo, fmt.Sprintf(format, args...)) }
func (e *Entry) Warn(msg string)                   { e.logAt(slog.LevelWarn, msg) }
func (e *Entry) Warnf(format string, args ...any)  { e.logAt(slog.LevelWarn, fmt.Sprintf(format, args...)) }
func (e *Entry) Error(msg string)                  { e.logAt(slog.LevelError, msg) }
func (e *Entry) Errorf(format string, args ...any) { e.logAt(slog.LevelError, fmt.Sprintf(format, args...)) }

// Fatal logs the accumulated entry at error level, runs exit handlers, and
// terminates the process.
func (e *Entry) Fatal(msg string) {
	e.logAt(slog.LevelError, msg)
	runExitHandlers()
	os.Exit(1)
}

func (e *Entry) Fatalf(format string, args ...any) {
	e.logAt(slog.LevelError, fmt.Sprintf(format, args...))
	runExitHandlers()
	os.Exit(1)
}

func (e *Entry) logAt(level slog.Level, msg string) {
	if !defaultLogger.Enabled(context.Background(), level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(nowFunc(), level, msg, pcs[0])
	r.AddAttrs(e.attrs...)
	_ = defaultLogger.Handler().Handle(context.Background(), r)
}

var (
	exitHandlers   []func()
	exitHandlersMu sync.Mutex
)

// RegisterExitHandler registers a function to run before Fatal terminates.
func RegisterExitHandler(handler func()) {
	exitHandlersMu.Lock()
	defer exitHandlersMu.Unlock()
	exitHandlers = append(exitHandlers, handler)
}

func runExitHandlers() {
	exitHandlersMu.Lock()
	handlers := make([]func(), len(exitHandlers))
	copy(handlers, exitHandlers)
	exitHandlersMu.Unlock()

	for _, h := range handlers {
		h()
	}
}
