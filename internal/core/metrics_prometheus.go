package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ingredientcore/pkg/schema"
)

// PrometheusMetricsRecorder exports operation counters and latencies, plus the
// index layout of every planned table.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	indexes    *prometheus.GaugeVec
}

// NewPrometheusMetricsRecorder registers the recorder's collectors with reg.
// A nil reg uses the default registerer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusMetricsRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingredientcore",
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ingredientcore",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		indexes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ingredientcore",
			Name:      "planned_indexes",
			Help:      "Indexes planned per table and access method.",
		}, []string{"table", "method"}),
	}
	for _, c := range []prometheus.Collector{r.operations, r.durations, r.indexes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.operations.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObservePlans records the btree and trigram index counts of each plan.
func (r *PrometheusMetricsRecorder) ObservePlans(plans []schema.Plan) {
	for _, p := range plans {
		for _, method := range []schema.IndexMethod{schema.MethodBTree, schema.MethodTrigram} {
			r.indexes.WithLabelValues(p.Table.Name, string(method)).Set(float64(p.CountMethod(method)))
		}
	}
}
