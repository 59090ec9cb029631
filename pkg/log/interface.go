// Package log provides a structured logging interface for scitune search runs.
//
// The interface is slog-compatible so that callers can plug in any backend; the
// default implementation writes JSON through zerolog. Search components log with
// the attribute keys defined in attributes.go so that one run can be followed
// across candidates and folds by its run ID.
//
// Example usage:
//
//	logger := log.GetLoggerWithName("search").With(
//	    log.RunIDKey, runID,
//	    log.ModelNameKey, "boosted_trees",
//	)
//	logger.Info("candidate evaluated",
//	    log.CandidateKey, "Model03",
//	    log.FoldCountKey, 5,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key/value pairs. With returns a derived logger carrying
// the given fields on every subsequent record.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message. If the first field is an error it is
	// attached under ErrAttrKey, together with its stack trace when available.
	//
	//   logger.Error("fold failed", err, log.FoldKey, 3)
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits log records at the given level.
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
