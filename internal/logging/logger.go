package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Component names used with ForComponent.
const (
	CompParser  = "parser"
	CompScanner = "scanner"
	CompSearch  = "search"
	CompProject = "project"
	CompConfig  = "config"
	CompMCP     = "mcp"
	CompWeb     = "web"
	CompWatch   = "watch"
	CompHistory = "history"
	CompCLI     = "cli"
)

// Config holds logging configuration.
type Config struct {
	// LogDir receives claude-grep.log when Debug is set.
	LogDir string

	// Level is the minimum level: "debug", "info", "warn", "error".
	// Defaults to "debug" in debug mode and "warn" otherwise.
	Level string

	// Format is "text" (default) or "json".
	Format string

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Debug routes logs to a rotating file instead of stderr.
	Debug bool

	// Stderr overrides the non-debug destination. Used by tests.
	Stderr io.Writer
}

var (
	globalMu     sync.RWMutex
	globalLogger *slog.Logger
	fileWriter   *lumberjack.Logger
)

// Init configures the process-wide logger. It may be called more than once;
// the previous file writer is closed.
func Init(cfg Config) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 14
	}

	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if fileWriter != nil {
		_ = fileWriter.Close()
		fileWriter = nil
	}

	var out io.Writer = os.Stderr
	if cfg.Stderr != nil {
		out = cfg.Stderr
	}
	if cfg.Debug && cfg.LogDir != "" {
		fileWriter = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, "claude-grep.log"),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		out = fileWriter
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	globalLogger = slog.New(handler)
}

// Logger returns the global logger. Before Init it logs warnings to stderr.
func Logger() *slog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger == nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return globalLogger
}

// ForComponent returns a logger tagged with component. The handler is
// resolved on every record, so package-level loggers created before Init
// still end up on the configured destination.
func ForComponent(name string) *slog.Logger {
	return slog.New(&componentHandler{component: name})
}

// Shutdown closes the rotating file, if any.
func Shutdown() {
	globalMu.Lock()
	defer globalMu.Unlock()
	if fileWriter != nil {
		_ = fileWriter.Close()
		fileWriter = nil
	}
	globalLogger = nil
}

type componentHandler struct {
	component string
	attrs     []slog.Attr
	group     string
}

func (h *componentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return Logger().Handler().Enabled(ctx, level)
}

func (h *componentHandler) Handle(ctx context.Context, r slog.Record) error {
	handler := Logger().Handler().WithAttrs([]slog.Attr{slog.String("component", h.component)})
	if len(h.attrs) > 0 {
		handler = handler.WithAttrs(h.attrs)
	}
	if h.group != "" {
		handler = handler.WithGroup(h.group)
	}
	return handler.Handle(ctx, r)
}

func (h *componentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &componentHandler{component: h.component, attrs: merged, group: h.group}
}

func (h *componentHandler) WithGroup(name string) slog.Handler {
	return &componentHandler{component: h.component, attrs: h.attrs, group: name}
}
