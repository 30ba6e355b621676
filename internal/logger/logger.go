// Package logger holds the process-wide structured logger used by maralloc.
package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// EnvVar turns on debug logging to stderr when set to a non-empty value.
const EnvVar = "MARALLOC_LOG"

// FileName is the log file Init appends to inside Options.LogDir.
const FileName = "maralloc.log"

// L is the global logger instance. It discards all output unless EnvVar is
// set or Init enables logging to a file.
var L = fromEnv()

var (
	mu   sync.Mutex
	file *os.File
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	LogDir  string     // Directory for the log file. Default: ~/.maralloc
	Level   slog.Level // Minimum log level
}

func fromEnv() *slog.Logger {
	if os.Getenv(EnvVar) == "" {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Init points L at a JSON log file, or at nothing when opts.Enabled is false.
// Any file opened by an earlier Init is closed.
func Init(opts Options) error {
	if !opts.Enabled {
		L = slog.New(slog.DiscardHandler)
		return Close()
	}

	dir := opts.LogDir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		dir = filepath.Join(home, ".maralloc")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if err := Close(); err != nil {
		f.Close()
		return err
	}

	mu.Lock()
	file = f
	mu.Unlock()
	L = slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: opts.Level}))
	return nil
}

// Close closes the file opened by Init, if any. L keeps pointing at the
// closed file, so callers should Close only on exit.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
