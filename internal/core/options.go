package core

import (
	"context"
	"time"
)

// Clock supplies timestamps to the service and the stores it builds.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock. A nil function falls back to the wall clock; results
// are always UTC.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

// Logger is the structured logging surface used by the service. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MetricsRecorder observes the outcome of service operations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

// ServiceOption customises a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	clock   Clock
	logger  Logger
	metrics MetricsRecorder
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		clock:   ClockFunc(nil),
		logger:  noopLogger{},
		metrics: noopMetrics{},
	}
}

// WithClock overrides the time source. Nil restores the wall clock.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock == nil {
			clock = ClockFunc(nil)
		}
		o.clock = clock
	}
}

// WithLogger installs a logger. Nil restores the silent default.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger == nil {
			logger = noopLogger{}
		}
		o.logger = logger
	}
}

// WithMetricsRecorder installs a metrics recorder. Nil disables metrics.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if recorder == nil {
			recorder = noopMetrics{}
		}
		o.metrics = recorder
	}
}

func applyServiceOptions(opts []ServiceOption) serviceOptions {
	cfg := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
