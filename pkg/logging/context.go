package logging

import "context"

type contextKey string

const loggerKey contextKey = "logger"

// FromContext returns the logger from the context
// If no logger is found, returns the global logger
func FromContext(ctx context.Context) *Logger {
	if ctx == nil {
		return GetGlobalLogger()
	}
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok {
		return logger
	}
	return GetGlobalLogger()
}

// IntoContext returns a new context with the logger
func IntoContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerForCore returns a logger for one worker core
func LoggerForCore(base *Logger, core, socket int) *Logger {
	return base.WithName("core").WithValues(
		"core", core,
		"socket", socket,
	)
}

// LoggerForStream returns a logger carrying the stream mode
func LoggerForStream(base *Logger, mode string) *Logger {
	return base.WithValues("stream", mode)
}

// LoggerForCommand returns a named logger for a CLI subcommand
func LoggerForCommand(name string) *Logger {
	return GetGlobalLogger().WithName(name).WithValues(
		"command", name,
	)
}
