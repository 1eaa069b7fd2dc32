package store

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks repository outcomes. A nil *Metrics records nothing.
type Metrics struct {
	Operations            *prometheus.CounterVec
	OperationDuration     *prometheus.HistogramVec
	IgnoredDeleteFailures prometheus.Counter
}

// NewMetrics registers the repository metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "docpointer_store_operations_total",
			Help: "Repository operations by operation and result",
		}, []string{"operation", "result"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docpointer_store_operation_duration_seconds",
			Help:    "Duration of repository operations",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
		IgnoredDeleteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "docpointer_ignored_delete_failures_total",
			Help: "Delete failures suppressed by the caller, e.g. while superseding",
		}),
	}
}

// observe records one finished operation. Call with time.Now() taken at the
// start of the operation.
func (m *Metrics) observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = resultLabel(err)
	}
	m.Operations.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ignoredDeleteFailure() {
	if m == nil {
		return
	}
	m.IgnoredDeleteFailures.Inc()
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyExists):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
