package logging

import (
	"bytes"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Stdout carries the MCP protocol, so every logger in this package writes to
// stderr or a file, never to stdout.

const logPrefix = "ambient-mcp"

type AppLogger struct {
	logger *log.Logger
	debug  bool
}

// Options controls how NewAppLogger builds the logger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// File, when set, receives log output instead of stderr.
	File string
}

var (
	defaultLogger *AppLogger
	once          sync.Once
)

// GetDefault returns the default logger instance (singleton-like for convenience)
func GetDefault() *AppLogger {
	once.Do(func() {
		defaultLogger = NewAppLogger(Options{Level: os.Getenv("LOG_LEVEL")})
	})
	return defaultLogger
}

// Package-level convenience functions for quick logging
func Warn(msg string, keyvals ...interface{}) {
	GetDefault().Warn(msg, keyvals...)
}

func Debug(msg string, keyvals ...interface{}) {
	GetDefault().Debug(msg, keyvals...)
}

// NewAppLogger builds the process logger. DEBUG in the environment forces
// debug level with caller reporting regardless of opts.Level.
func NewAppLogger(opts Options) *AppLogger {
	debug := os.Getenv("DEBUG") != ""

	var out io.Writer = os.Stderr
	var fileErr error
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fileErr = err
		} else {
			out = f
		}
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		level = log.InfoLevel
	}
	if debug {
		level = log.DebugLevel
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportCaller:    debug,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          logPrefix,
	})
	logger.SetLevel(level)

	if fileErr != nil {
		logger.Warn("Failed to open log file, using stderr", "file", opts.File, "error", fileErr)
	}
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", opts.Level)
	}

	return &AppLogger{
		logger: logger,
		debug:  level == log.DebugLevel,
	}
}

// ParseLevel maps a config string to a charmbracelet/log level.
func ParseLevel(level string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return log.InfoLevel, nil
	case "debug":
		return log.DebugLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Log application events
func (al *AppLogger) Info(msg string, keyvals ...interface{}) {
	al.logger.Info(msg, keyvals...)
}

func (al *AppLogger) Warn(msg string, keyvals ...interface{}) {
	al.logger.Warn(msg, keyvals...)
}

func (al *AppLogger) Error(msg string, keyvals ...interface{}) {
	al.logger.Error(msg, keyvals...)
}

func (al *AppLogger) Debug(msg string, keyvals ...interface{}) {
	if al.debug {
		al.logger.Debug(msg, keyvals...)
	}
}

// With returns a child logger that always includes keyvals.
func (al *AppLogger) With(keyvals ...interface{}) *AppLogger {
	return &AppLogger{
		logger: al.logger.With(keyvals...),
		debug:  al.debug,
	}
}

// StandardLog adapts the logger for libraries that want a *log.Logger.
// Everything written through it is logged at error level.
func (al *AppLogger) StandardLog() *stdlog.Logger {
	return al.logger.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel})
}

// Log performance metrics
func (al *AppLogger) LogPerformance(operation string, start time.Time) {
	if al.debug {
		duration := time.Since(start)
		al.logger.Debug("Performance",
			"operation", operation,
			"duration", duration,
		)
	}
}

// Testing Helper - NewTestLogger creates a logger that writes to a buffer for testing
func NewTestLogger() (*AppLogger, *bytes.Buffer) {
	var buf bytes.Buffer

	logger := log.NewWithOptions(&buf, log.Options{
		ReportTimestamp: false, // Easier to test without timestamps
		ReportCaller:    false,
		Prefix:          "Test",
	})
	logger.SetLevel(log.DebugLevel)

	return &AppLogger{
		logger: logger,
		debug:  true,
	}, &buf
}
