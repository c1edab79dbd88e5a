package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
	l.mu.Unlock()
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record("error", msg, args) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

type observation struct {
	operation string
	success   bool
}

type recordingMetrics struct {
	mu  sync.Mutex
	obs []observation
}

func (m *recordingMetrics) Observe(_ context.Context, operation string, success bool, _ time.Duration) {
	m.mu.Lock()
	m.obs = append(m.obs, observation{operation: operation, success: success})
	m.mu.Unlock()
}

func (m *recordingMetrics) last() observation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.obs) == 0 {
		return observation{}
	}
	return m.obs[len(m.obs)-1]
}

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	base := []ServiceOption{WithClock(ClockFunc(func() time.Time { return fixedNow }))}
	svc, err := NewInMemoryService(NewDefaultRulesEngine(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewInMemoryService: %v", err)
	}
	return svc
}

func deref(t *testing.T, v *string) string {
	t.Helper()
	if v == nil {
		t.Fatalf("unexpected nil string")
	}
	return *v
}
