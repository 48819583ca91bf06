package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vmind_sync",
			Name:      "queue_depth",
			Help:      "Mutations currently queued.",
		},
	)

	processed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vmind_sync",
			Name:      "mutations_processed_total",
			Help:      "Completed processing attempts by outcome.",
		},
		[]string{"outcome"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vmind_sync",
			Name:      "status_changes_total",
			Help:      "Engine status transitions by status.",
		},
		[]string{"status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(queueDepth, processed, statusChanges)
	})
}

// SetQueueDepth records the current queue size.
func SetQueueDepth(n int) {
	queueDepth.Set(float64(n))
}

// IncProcessed increments the counter for a processing outcome label.
func IncProcessed(outcome string) {
	processed.WithLabelValues(outcome).Inc()
}

// IncStatus increments the counter for an engine status label.
func IncStatus(status string) {
	statusChanges.WithLabelValues(status).Inc()
}
