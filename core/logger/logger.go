package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/funnelbot/core/buildinfo"
	coreconfig "github.com/m3rciful/funnelbot/core/config"
)

var (
	initOnce sync.Once
	stopOnce sync.Once

	out      *lineWriter
	logFile  *os.File
	levelVar slog.LevelVar
	sampler  debugSampler

	// L is the base logger. Until InitLogger runs it discards everything.
	L = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// InitLogger installs the structured logger described by cfg.Logging. Only
// the first call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		var lc coreconfig.LoggingConfig
		if cfg != nil {
			lc = cfg.Logging
		}
		levelVar.Set(parseLevel(lc.Level))
		sampler.setEvery(parseSampleEvery(lc.DebugSample))

		outputs := []io.Writer{os.Stdout}
		if path := strings.TrimSpace(lc.File); path != "" {
			f, err := openLogFile(path)
			if err != nil {
				initErr = err
				return
			}
			logFile = f
			outputs = append(outputs, f)
		}
		out = newLineWriter(outputs, 256)

		L = slog.New(newRecordHandler(&levelVar, parseFormat(lc.Format), out))
		slog.SetDefault(L)

		Info(context.Background(), "app", "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("build_version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
		)
	})
	return initErr
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return f, nil
}

// Shutdown flushes pending lines and closes the log file.
func Shutdown() error {
	var err error
	stopOnce.Do(func() {
		if out != nil {
			err = out.Close()
		}
		if logFile != nil {
			if cerr := logFile.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}

func parseFormat(raw string) logFormat {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "json":
		return formatJSON
	default:
		return formatKV
	}
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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

func logAt(ctx context.Context, level slog.Level, component, event string, attrs []slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !L.Enabled(ctx, level) {
		return
	}
	all := make([]slog.Attr, 0, len(attrs)+1)
	if component = strings.TrimSpace(component); component != "" {
		all = append(all, slog.String("component", component))
	}
	L.LogAttrs(ctx, level, event, append(all, attrs...)...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelDebug, component, event, attrs)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelInfo, component, event, attrs)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelWarn, component, event, attrs)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	logAt(ctx, slog.LevelError, component, event, attrs)
}

// Log is Debug/Info/Warn/Error with the level chosen at runtime.
func Log(ctx context.Context, level slog.Level, component, event string, attrs ...slog.Attr) {
	logAt(ctx, level, component, event, attrs)
}

// SampleDebug reports whether the next high-volume debug record should be
// written, per logging.debug_sample.
func SampleDebug() bool {
	return sampler.allow()
}
