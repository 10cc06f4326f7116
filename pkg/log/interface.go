// Package log provides a structured logging interface for glsfit estimation runs.
//
// The interface is slog-compatible (levels share slog's numeric values) and is
// backed by zerolog by default. Estimators accept a Logger so that tests can
// capture output with TestLogger and applications can route it anywhere.
//
// Example usage:
//
//	logger := log.GetLogger().With(
//	    log.ModelNameKey, "GLS",
//	    log.ComponentKey, "linear",
//	)
//	logger.Info("fit completed",
//	    log.SamplesKey, 120,
//	    log.DFResidKey, 117,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. Values implementing
// zerolog.LogObjectMarshaler (all glsfit error types do) are emitted as
// nested objects by the zerolog backend.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	//
	// Example:
	//   logger.Error("fit failed",
	//       log.ErrAttrKey, err,
	//       log.OperationKey, log.OperationFit,
	//   )
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
	// Use it to skip building expensive fields such as full coefficient vectors.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
