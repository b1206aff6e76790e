// Package observability provides production-grade observability for
// statekit: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// LogMutation logs a successful cell mutation.
func LogMutation(logger *slog.Logger, cellID string, version uint64) {
	if logger == nil {
		return
	}
	logger.Debug("cell mutated",
		slog.String("cell_id", cellID),
		slog.Uint64("version", version),
	)
}

// LogDrainStart logs the start of a batch drain.
func LogDrainStart(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Debug("batch drain starting")
}

// LogDrainComplete logs batch drain completion.
func LogDrainComplete(logger *slog.Logger, rounds, cells int, durationMs float64, failures int) {
	if logger == nil {
		return
	}
	logger.Debug("batch drained",
		slog.Int("rounds", rounds),
		slog.Int("cells_notified", cells),
		slog.Float64("duration_ms", durationMs),
		slog.Int("subscriber_errors", failures),
	)
}

// LogNotification logs one cell's fan-out.
func LogNotification(logger *slog.Logger, cellID string, fromVersion, toVersion uint64) {
	if logger == nil {
		return
	}
	logger.Debug("cell notified",
		slog.String("cell_id", cellID),
		slog.Uint64("from_version", fromVersion),
		slog.Uint64("to_version", toVersion),
	)
}

// LogSubscriberError logs a failed delivery (non-fatal for the batch).
func LogSubscriberError(logger *slog.Logger, cellID, handle string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("subscriber failed",
		slog.String("cell_id", cellID),
		slog.String("handle", handle),
		slog.String("error", err.Error()),
	)
}

// LogDispose logs cell disposal.
func LogDispose(logger *slog.Logger, cellID string) {
	if logger == nil {
		return
	}
	logger.Debug("cell disposed",
		slog.String("cell_id", cellID),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
