// Package logger is the bot's structured logger: slog records rendered as one
// kv or JSON line each, tagged with a component, an event name and the ids of
// the Telegram update being served.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/squonkradio/core/buildinfo"
	coreconfig "github.com/m3rciful/squonkradio/core/config"
)

const sinkDepth = 512

var (
	mu     sync.Mutex
	out    *sink
	file   io.Closer
	active atomic.Pointer[slog.Logger]

	level   slog.LevelVar
	sampled sampler
)

// InitLogger installs the process logger described by cfg: stdout plus,
// when logging.dir is set, an append-only file in that directory.
func InitLogger(cfg *coreconfig.Config) error {
	if cfg == nil {
		return errors.New("logger: nil config")
	}
	lc := cfg.Logging

	var w io.Writer = os.Stdout
	var f *os.File
	if dir := strings.TrimSpace(lc.Dir); dir != "" {
		name := strings.TrimSpace(lc.File)
		if name == "" {
			name = "bot.log"
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("logger: create %s: %w", dir, err)
		}
		var err error
		f, err = os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("logger: open log file: %w", err)
		}
		w = io.MultiWriter(os.Stdout, f)
	}

	install(w, lc.Format, parseLevel(lc.Level))
	sampled.set(lc.DebugSample)
	if f != nil {
		mu.Lock()
		file = f
		mu.Unlock()
	}

	build := buildinfo.Read()
	Info(context.Background(), "app", "startup",
		slog.String("go_version", runtime.Version()),
		slog.String("version", build.Version),
		slog.String("commit", build.Commit),
		slog.String("built", build.Date),
		slog.String("level", level.Level().String()),
	)
	return nil
}

// install replaces the active logger. The previous sink, if any, is flushed.
func install(w io.Writer, format string, lvl slog.Level) {
	level.Set(lvl)
	s := newSink(w, sinkDepth)
	l := slog.New(&lineHandler{
		out:   s,
		level: &level,
		json:  !strings.EqualFold(strings.TrimSpace(format), "kv"),
	})

	mu.Lock()
	prev := out
	out = s
	active.Store(l)
	mu.Unlock()

	if prev != nil {
		_ = prev.close()
	}
	slog.SetDefault(l)
}

// Shutdown flushes pending lines and closes the log file. Later calls to the
// logging helpers are no-ops.
func Shutdown() error {
	mu.Lock()
	s, f := out, file
	out, file = nil, nil
	active.Store(nil)
	mu.Unlock()

	var errs []error
	if s != nil {
		errs = append(errs, s.close())
	}
	if f != nil {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Log writes one event for component. It does nothing before InitLogger.
func Log(ctx context.Context, lvl slog.Level, component, event string, attrs ...slog.Attr) {
	l := active.Load()
	if l == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if component != "" {
		attrs = append([]slog.Attr{slog.String("component", component)}, attrs...)
	}
	l.LogAttrs(ctx, lvl, event, attrs...)
}

// Debug logs at debug level.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelDebug, component, event, attrs...)
}

// Info logs at info level.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelInfo, component, event, attrs...)
}

// Warn logs at warn level.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelWarn, component, event, attrs...)
}

// Error logs at error level.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Log(ctx, slog.LevelError, component, event, attrs...)
}

// Sampled reports whether a high-volume debug line should be written, one in
// logging.debug_sample calls. It is always false unless debug is enabled.
func Sampled() bool {
	return level.Level() <= slog.LevelDebug && sampled.allow()
}
