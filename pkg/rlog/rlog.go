// Package rlog is the module's structured logger: a package-level
// *slog.Logger plus Debug/Info/Warn/Error helpers, backed by a
// ring-buffer handler so a caller (the example server's websocket
// endpoint) can replay recent log lines to a freshly connected client.
package rlog

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Log is the package-level logger every other package in this module
// logs through, initialized by Init.
var Log *slog.Logger

// historySize bounds the in-memory ring buffer Init's handler keeps.
const historySize = 500

var (
	historyMu sync.RWMutex
	history   []string
)

// ringHandler wraps a slog.Handler, appending a rendered line to the
// bounded in-memory history on every record so GetHistory can replay
// recent activity to a newly attached consumer without re-reading logs
// from disk.
type ringHandler struct {
	slog.Handler
}

func (h *ringHandler) Handle(ctx context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Level.String())
	b.WriteByte(' ')
	b.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(a.Value.String())
		return true
	})

	historyMu.Lock()
	if len(history) >= historySize {
		history = history[1:]
	}
	history = append(history, b.String())
	historyMu.Unlock()

	return h.Handler.Handle(ctx, r)
}

// Init builds the global logger at the given level ("DEBUG", "INFO",
// "WARN", "ERROR"; anything else falls back to INFO) writing
// structured text to stdout.
func Init(levelStr string) {
	var level slog.Level
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	base := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	Log = slog.New(&ringHandler{Handler: base})
	slog.SetDefault(Log)
}

// GetHistory returns a copy of the most recent log lines, oldest first.
func GetHistory() []string {
	historyMu.RLock()
	defer historyMu.RUnlock()
	cp := make([]string, len(history))
	copy(cp, history)
	return cp
}

func Debug(msg string, args ...any) { Log.Debug(msg, args...) }
func Info(msg string, args ...any)  { Log.Info(msg, args...) }
func Warn(msg string, args ...any)  { Log.Warn(msg, args...) }
func Error(msg string, args ...any) { Log.Error(msg, args...) }
