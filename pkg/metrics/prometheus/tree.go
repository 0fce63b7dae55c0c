package prometheus

import (
	"time"

	"github.com/marmos91/davtree/pkg/metrics"
	"github.com/marmos91/davtree/pkg/tree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// treeMetrics is the Prometheus implementation of metrics.TreeMetrics.
type treeMetrics struct {
	operationsTotal    *prometheus.CounterVec
	operationDuration  *prometheus.HistogramVec
	multistatusEntries *prometheus.CounterVec
	lockedItems        prometheus.Gauge
}

// NewTreeMetrics creates a new Prometheus-backed TreeMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewTreeMetrics() metrics.TreeMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopTreeMetrics()
	}

	reg := metrics.GetRegistry()

	return &treeMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "davtree_tree_operations_total",
				Help: "Total number of tree operations by name, status, and error code",
			},
			[]string{"operation", "status", "error_code"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "davtree_tree_operation_duration_milliseconds",
				Help: "Duration of tree operations in milliseconds",
				Buckets: []float64{
					1,     // 1ms
					10,    // 10ms
					100,   // 100ms
					1000,  // 1s
					10000, // 10s
				},
			},
			[]string{"operation"},
		),
		multistatusEntries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "davtree_tree_multistatus_entries_total",
				Help: "Total number of per-item failures collected by bulk operations",
			},
			[]string{"operation"},
		),
		lockedItems: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "davtree_lock_items",
				Help: "Current number of locked items",
			},
		),
	}
}

func (m *treeMetrics) RecordOperation(operation string, duration time.Duration, err error) {
	status := "success"
	errorCode := ""
	if err != nil {
		status = "error"
		errorCode = tree.CodeOf(err).String()
	}
	m.operationsTotal.WithLabelValues(operation, status, errorCode).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(float64(duration.Milliseconds()))
}

func (m *treeMetrics) RecordMultistatus(operation string, entries int) {
	if entries > 0 {
		m.multistatusEntries.WithLabelValues(operation).Add(float64(entries))
	}
}

func (m *treeMetrics) SetLockedItems(count int) {
	m.lockedItems.Set(float64(count))
}
