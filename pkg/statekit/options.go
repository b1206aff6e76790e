package statekit

import (
	"log/slog"

	"github.com/statekit/statekit/pkg/statekit/config"
	"github.com/statekit/statekit/pkg/statekit/observability"
)

// DefaultMaxDrainRounds bounds how many times a drain re-snapshots the
// dirty set when callbacks keep mutating cells. Exceeding it surfaces
// ErrMaxDrainRounds from the outermost End.
const DefaultMaxDrainRounds = 100

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Default: no-op.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithSpans sets the trace span manager. Default: no-op.
func WithSpans(m observability.SpanManager) Option {
	return func(s *Scheduler) {
		if m != nil {
			s.spans = m
		}
	}
}

// WithMaxDrainRounds sets the drain round limit.
// Default: DefaultMaxDrainRounds.
func WithMaxDrainRounds(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxRounds = n
		}
	}
}

// FromConfig maps configuration keys to scheduler options:
//
//	max_drain_rounds: int    - drain round limit
//	metrics:          bool   - enable OpenTelemetry metrics
//	tracing:          bool   - enable OpenTelemetry spans
func FromConfig(cfg config.Config) []Option {
	var opts []Option
	if n := cfg.Int("max_drain_rounds", 0); n > 0 {
		opts = append(opts, WithMaxDrainRounds(n))
	}
	if cfg.Bool("metrics", false) {
		opts = append(opts, WithMetrics(observability.NewMetricsRecorder()))
	}
	if cfg.Bool("tracing", false) {
		opts = append(opts, WithSpans(observability.NewSpanManager()))
	}
	return opts
}
