package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Category groups log lines by the subsystem that produced them.
type Category string

const (
	Application   Category = "application"
	DiscordEvents Category = "discord"
	Database      Category = "database"
	Errors        Category = "error"
)

// Options configures SetupLogger.
type Options struct {
	Dir       string
	Level     string
	MaxSizeMB int
	// Console mirrors every line to stdout when true.
	Console bool
}

// Logger owns the slog handler and the rotating file behind it.
type Logger struct {
	base *slog.Logger
	file *lumberjack.Logger
}

var (
	mu sync.RWMutex
	// GlobalLogger is nil until SetupLogger succeeds.
	GlobalLogger *Logger
)

// SetupLogger builds the global logger. Calling it again replaces the previous one.
func SetupLogger(opts Options) error {
	var writers []io.Writer
	if opts.Console {
		writers = append(writers, os.Stdout)
	}

	var file *lumberjack.Logger
	if dir := strings.TrimSpace(opts.Dir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		file = &lumberjack.Logger{
			Filename:   filepath.Join(dir, "wikiguide.log"),
			MaxSize:    maxSize,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		writers = append(writers, file)
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: ParseLevel(opts.Level)})
	l := &Logger{base: slog.New(handler), file: file}

	mu.Lock()
	prev := GlobalLogger
	GlobalLogger = l
	mu.Unlock()

	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

// ParseLevel maps a textual level to slog; unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Close flushes and closes the rotating file, if any.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// For returns a logger tagged with the given category.
func (l *Logger) For(category Category) *slog.Logger {
	if l == nil || l.base == nil {
		return slog.Default().With("category", string(category))
	}
	return l.base.With("category", string(category))
}

func categoryLogger(category Category) *slog.Logger {
	mu.RLock()
	l := GlobalLogger
	mu.RUnlock()
	return l.For(category)
}

func ApplicationLogger() *slog.Logger { return categoryLogger(Application) }
func DiscordLogger() *slog.Logger     { return categoryLogger(DiscordEvents) }
func DatabaseLogger() *slog.Logger    { return categoryLogger(Database) }

// ErrorLoggerRaw returns the logger used for failures that have no better home.
func ErrorLoggerRaw() *slog.Logger { return categoryLogger(Errors) }
