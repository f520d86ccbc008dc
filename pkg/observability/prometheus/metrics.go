// Package prometheus exports pipeline metrics: task throughput and latency,
// queue occupancy and worker activity.
package prometheus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DefaultRegistry is the default Prometheus registry
	DefaultRegistry = prometheus.NewRegistry()

	// DefaultRegisterer is the default Prometheus registerer
	DefaultRegisterer = prometheus.WrapRegistererWith(prometheus.Labels{"service": "flowline"}, DefaultRegistry)

	metricsOnce sync.Once
	metrics     *Metrics
)

// Metrics holds all Prometheus metrics for a pipeline.
type Metrics struct {
	// Task metrics
	TasksCompletedTotal prometheus.Counter
	TaskFailuresTotal   prometheus.Counter
	TaskDuration        prometheus.Histogram

	// Queue metrics
	QueueDepth    prometheus.Gauge
	QueueCapacity prometheus.Gauge

	// Worker metrics
	WorkersActive prometheus.Gauge
}

// GetMetrics returns the global metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics(DefaultRegisterer)
	})
	return metrics
}

// NewMetrics creates a metrics collection registered with registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = DefaultRegisterer
	}

	return &Metrics{
		TasksCompletedTotal: promauto.With(registerer).NewCounter(
			prometheus.CounterOpts{
				Name: "flowline_tasks_completed_total",
				Help: "Total number of successfully processed items",
			},
		),
		TaskFailuresTotal: promauto.With(registerer).NewCounter(
			prometheus.CounterOpts{
				Name: "flowline_task_failures_total",
				Help: "Total number of items whose handler returned an error",
			},
		),
		TaskDuration: promauto.With(registerer).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "flowline_task_duration_seconds",
				Help:    "Handler execution time per item in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		QueueDepth: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "flowline_queue_depth",
				Help: "Current number of items waiting in the queue",
			},
		),
		QueueCapacity: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "flowline_queue_capacity",
				Help: "Fixed capacity of the queue",
			},
		),
		WorkersActive: promauto.With(registerer).NewGauge(
			prometheus.GaugeOpts{
				Name: "flowline_workers_active",
				Help: "Number of running worker goroutines",
			},
		),
	}
}

// Observer bridges coordinator events into the metrics collection. It
// implements coordinator.Observer.
type Observer struct {
	m *Metrics
}

// NewObserver creates an Observer recording into m.
func NewObserver(m *Metrics) *Observer {
	if m == nil {
		m = GetMetrics()
	}
	return &Observer{m: m}
}

func (o *Observer) TaskCompleted(d time.Duration) {
	o.m.TasksCompletedTotal.Inc()
	o.m.TaskDuration.Observe(d.Seconds())
}

func (o *Observer) TaskFailed() {
	o.m.TaskFailuresTotal.Inc()
}

func (o *Observer) WorkerStarted() {
	o.m.WorkersActive.Inc()
}

func (o *Observer) WorkerStopped() {
	o.m.WorkersActive.Dec()
}
