package core

import (
	"context"
	"testing"
	"time"
)

func TestNoopLogger(t *testing.T) {
	logger := noopLogger{}
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("noop logger panicked: %v", r)
		}
	}()
	logger.Debug("msg", "k", "v")
	logger.Info("msg", "k", "v")
	logger.Warn("msg", "k", "v")
	logger.Error("msg", "k", "v")
	noopMetrics{}.Observe(context.Background(), "op", true, time.Second)
}

func TestClockFunc(t *testing.T) {
	if got := ClockFunc(nil).Now(); got.Location() != time.UTC {
		t.Fatalf("nil clock should return UTC, got %s", got.Location())
	}
	local := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	got := ClockFunc(func() time.Time { return local }).Now()
	if got.Location() != time.UTC || !got.Equal(local) {
		t.Fatalf("expected UTC conversion of %s, got %s", local, got)
	}
}

func TestServiceOptionsDefaults(t *testing.T) {
	cfg := applyServiceOptions([]ServiceOption{nil, WithLogger(nil), WithMetricsRecorder(nil), WithClock(nil)})
	if _, ok := cfg.logger.(noopLogger); !ok {
		t.Fatalf("expected noop logger, got %T", cfg.logger)
	}
	if _, ok := cfg.metrics.(noopMetrics); !ok {
		t.Fatalf("expected noop metrics, got %T", cfg.metrics)
	}
	if cfg.clock == nil {
		t.Fatal("expected default clock")
	}
}
