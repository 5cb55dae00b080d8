// Package logging provides categorized file-based logging for omnichat.
// Logs are written to <data dir>/logs/ with separate files per category.
// Logging is a no-op unless debug mode is enabled in the config.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup and shutdown
	CategorySession    Category = "session"    // Chat lifecycle, send pipeline
	CategoryStore      Category = "store"      // Persistence operations
	CategoryAPI        Category = "api"        // Gemini API calls
	CategoryAttachment Category = "attachment" // Attachment resolution
)

// Options controls logger behavior. Zero value disables all output.
type Options struct {
	Debug      bool
	Level      string // debug, info, warn, error (default info)
	JSONFormat bool
}

// Log levels
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// entry is the structured form written when JSONFormat is set.
type entry struct {
	Timestamp int64  `json:"ts"` // unix milliseconds
	Category  string `json:"cat"`
	Level     string `json:"lvl"`
	Message   string `json:"msg"`
}

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	opts      Options
	optsMu    sync.RWMutex
	logLevel  int
)

// Initialize sets up the logging directory. Should be called once at startup
// with the data directory path. A no-op when debug mode is off.
func Initialize(dataDir string, o Options) error {
	if dataDir == "" {
		return fmt.Errorf("data directory path required")
	}

	optsMu.Lock()
	opts = o
	switch o.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	optsMu.Unlock()

	if !o.Debug {
		return nil
	}

	logsDir = filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== omnichat logging initialized ===")
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Log level: %s", o.Level)
	return nil
}

// IsDebugMode returns whether debug logging is enabled.
func IsDebugMode() bool {
	optsMu.RLock()
	defer optsMu.RUnlock()
	return opts.Debug
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger when debug mode is disabled.
func Get(category Category) *Logger {
	if !IsDebugMode() || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	// Date prefix keeps rotation a matter of deleting old files.
	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

func (l *Logger) write(level int, tag, format string, args ...interface{}) {
	if l.logger == nil || logLevel > level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	optsMu.RLock()
	jsonOut := opts.JSONFormat
	optsMu.RUnlock()
	if jsonOut {
		data, err := json.Marshal(entry{
			Timestamp: time.Now().UnixMilli(),
			Category:  string(l.category),
			Level:     tag,
			Message:   msg,
		})
		if err == nil {
			l.logger.Printf("%s", data)
			return
		}
	}
	l.logger.Printf("[%s] %s", tag, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(LevelDebug, "DEBUG", format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(LevelInfo, "INFO", format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(LevelWarn, "WARN", format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(LevelError, "ERROR", format, args...)
}

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Convenience functions: quick logging without getting a logger first.
// All are no-ops when debug mode is disabled.

// Session logs to the session category.
func Session(format string, args ...interface{}) {
	Get(CategorySession).Info(format, args...)
}

// SessionDebug logs debug to the session category.
func SessionDebug(format string, args ...interface{}) {
	Get(CategorySession).Debug(format, args...)
}

// SessionError logs error to the session category.
func SessionError(format string, args ...interface{}) {
	Get(CategorySession).Error(format, args...)
}

// Store logs to the store category.
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category.
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// StoreError logs error to the store category.
func StoreError(format string, args ...interface{}) {
	Get(CategoryStore).Error(format, args...)
}

// API logs to the api category.
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

// APIError logs error to the api category.
func APIError(format string, args ...interface{}) {
	Get(CategoryAPI).Error(format, args...)
}

// Attachment logs to the attachment category.
func Attachment(format string, args ...interface{}) {
	Get(CategoryAttachment).Info(format, args...)
}

// AttachmentError logs error to the attachment category.
func AttachmentError(format string, args ...interface{}) {
	Get(CategoryAttachment).Error(format, args...)
}

// Boot logs to the boot category.
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}
