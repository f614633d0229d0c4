package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	FetchRequests     *prometheus.CounterVec
	FetchErrors       *prometheus.CounterVec
	FlightsWritten    *prometheus.CounterVec
	ClassesWritten    *prometheus.CounterVec
	FlightsDeleted    *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec
	FareTasksQueued   *prometheus.CounterVec
	FareTasksFailed   *prometheus.CounterVec
}

// NewMetrics creates new prometheus metrics registered on the default registry
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith registers the metrics on reg. Tests pass a fresh registry so
// repeated construction does not panic on duplicate registration.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FetchRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "The total number of requests sent to upstream providers",
		}, []string{"provider", "operation"}),
		FetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "The total number of failed upstream provider requests",
		}, []string{"provider", "operation"}),
		FlightsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flights_written_total",
			Help:      "The total number of flight rows inserted or updated",
		}, []string{"provider", "kind"}),
		ClassesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flight_classes_written_total",
			Help:      "The total number of flight class rows inserted or updated",
		}, []string{"provider", "kind"}),
		FlightsDeleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flights_deleted_total",
			Help:      "The total number of flights removed by cleanup or missing detection",
		}, []string{"reason"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time taken by top-level sync operations",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"operation", "provider"}),
		OperationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors counted by top-level operations",
		}, []string{"operation"}),
		FareTasksQueued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fare_tasks_queued_total",
			Help:      "The total number of fare-detail tasks enqueued",
		}, []string{"provider"}),
		FareTasksFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fare_tasks_dead_lettered_total",
			Help:      "The total number of fare-detail tasks that exhausted their retries",
		}, []string{"provider"}),
	}
}
