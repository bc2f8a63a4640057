package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// textHandler renders records as "time [level] source message key=value ...".
type textHandler struct {
	w         io.Writer
	level     *slog.LevelVar
	addSource bool
	mu        *sync.Mutex
}

func newTextHandler(w io.Writer, level *slog.LevelVar, addSource bool) *textHandler {
	return &textHandler{
		w:         w,
		level:     level,
		addSource: addSource,
		mu:        &sync.Mutex{},
	}
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	timeStr := r.Time.Format("2006-01-02 15:04:05")
	levelStr := strings.ToLower(r.Level.String())

	var source string
	if h.addSource && r.PC != 0 {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		source = fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
	}

	var attrs strings.Builder
	r.Attrs(func(a slog.Attr) bool {
		if attrs.Len() > 0 {
			attrs.WriteByte(' ')
		}
		attrs.WriteString(a.Key)
		attrs.WriteByte('=')
		attrs.WriteString(fmt.Sprintf("%v", a.Value.Any()))
		return true
	})

	var line strings.Builder
	line.Grow(len(timeStr) + len(levelStr) + len(source) + len(r.Message) + attrs.Len() + 16)
	line.WriteString(timeStr)
	line.WriteString(" [")
	line.WriteString(levelStr)
	line.WriteString("] ")
	if source != "" {
		line.WriteString(source)
		line.WriteByte(' ')
	}
	line.WriteString(r.Message)
	if attrs.Len() > 0 {
		line.WriteByte(' ')
		line.WriteString(attrs.String())
	}
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line.String())
	return err
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	// Attrs are carried by Entry instead; the handler stays stateless.
	return h
}

func (h *textHandler) WithGroup(name string) slog.Handler {
	return h
}
