// Package logging provides structured logging for tuplegen.
//
// The zap logger is exposed through the logr interface so that library
// packages only depend on logr. It supports:
// - JSON and text output formats
// - A replaceable global logger for the CLI
// - Structured key-value logging
// - Context-aware logging
//
// Usage:
//
//	logger, err := logging.NewLogger(logging.Options{
//	    Level:  "info",
//	    Format: "json",
//	})
//	logger.Info("Starting run", "cores", 4)
//	logger.Error(err, "Core failed", "core", 2)
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log level constants
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Log format constants
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Options contains configuration options for the logger
type Options struct {
	// Level is the log level: debug, info, warn, error
	// Default: info
	Level string

	// Format is the log format: json or text
	// Default: json
	Format string

	// OutputPath is the output file path
	// If empty, logs to Output, or stdout when Output is nil
	OutputPath string

	// Output overrides the destination writer, mainly for tests
	Output io.Writer

	// AddCaller adds caller information to log entries
	// Default: true
	AddCaller bool

	// CallerSkip is the number of stack frames to skip when determining caller
	// Default: 1
	CallerSkip int
}

// DefaultOptions returns default logging options
func DefaultOptions() Options {
	return Options{
		Level:      LevelInfo,
		Format:     FormatJSON,
		AddCaller:  true,
		CallerSkip: 1,
	}
}

// Logger carries a zap logger and its logr view. Info, Debug and Error go
// through logr; Warn has no logr level and goes to zap directly.
type Logger struct {
	zapLogger *zap.Logger
	logr      logr.Logger
}

var (
	globalLogger atomic.Pointer[Logger]
	defaultOnce  sync.Once
	defaultLog   *Logger
)

// NewLogger creates a new logger with the given options
//
// Returns:
//   - *Logger: Configured logger instance
//   - error: Unknown level or unwritable output file
func NewLogger(opts Options) (*Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	switch opts.Format {
	case FormatText:
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case FormatJSON, "":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	var output zapcore.WriteSyncer
	switch {
	case opts.OutputPath != "":
		file, err := os.OpenFile(opts.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = zapcore.AddSync(file)
	case opts.Output != nil:
		output = zapcore.AddSync(opts.Output)
	default:
		output = zapcore.AddSync(os.Stdout)
	}

	core := zapcore.NewCore(encoder, output, level)

	zapOpts := []zap.Option{}
	if opts.AddCaller {
		zapOpts = append(zapOpts, zap.AddCaller())
		if opts.CallerSkip > 0 {
			zapOpts = append(zapOpts, zap.AddCallerSkip(opts.CallerSkip))
		}
	}

	zapLogger := zap.New(core, zapOpts...)

	return &Logger{
		zapLogger: zapLogger,
		logr:      zapr.NewLogger(zapLogger),
	}, nil
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{zapLogger: zap.NewNop(), logr: logr.Discard()}
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel, nil
	case LevelInfo, "":
		return zapcore.InfoLevel, nil
	case LevelWarn:
		return zapcore.WarnLevel, nil
	case LevelError:
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// WithName returns a new logger with the given name
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		zapLogger: l.zapLogger.Named(name),
		logr:      l.logr.WithName(name),
	}
}

// WithValues returns a new logger with the given key-value pairs
func (l *Logger) WithValues(keysAndValues ...interface{}) *Logger {
	return &Logger{
		zapLogger: l.zapLogger.With(toZapFields(keysAndValues)...),
		logr:      l.logr.WithValues(keysAndValues...),
	}
}

// Debug logs a debug message with key-value pairs
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.logr.V(1).Info(msg, keysAndValues...)
}

// Info logs an info message with key-value pairs
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.logr.Info(msg, keysAndValues...)
}

// Warn logs a warning message with key-value pairs
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.zapLogger.Warn(msg, toZapFields(keysAndValues)...)
}

// Error logs an error message with key-value pairs
func (l *Logger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logr.Error(err, msg, keysAndValues...)
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.zapLogger.Sync()
}

func toZapFields(keysAndValues []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields = append(fields, zap.Any(key, keysAndValues[i+1]))
		}
	}
	return fields
}

// InitGlobalLogger builds a logger from opts and makes it the global one.
// A later call replaces it; on error the previous logger stays.
func InitGlobalLogger(opts Options) (*Logger, error) {
	logger, err := NewLogger(opts)
	if err != nil {
		return nil, err
	}
	globalLogger.Store(logger)
	return logger, nil
}

// GetGlobalLogger returns the global logger instance, or a default
// stdout logger if InitGlobalLogger was never called
func GetGlobalLogger() *Logger {
	if l := globalLogger.Load(); l != nil {
		return l
	}
	defaultOnce.Do(func() {
		defaultLog, _ = NewLogger(DefaultOptions())
	})
	return defaultLog
}

// L is a shorthand for GetGlobalLogger()
func L() *Logger {
	return GetGlobalLogger()
}
