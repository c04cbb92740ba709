package security

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for security audit emission.
type Metrics struct {
	QueueDepth        prometheus.Gauge
	Flushed           prometheus.Counter
	Dropped           prometheus.Counter
	DroppedAfterRetry prometheus.Counter
	Retries           prometheus.Counter
	FlushDuration     prometheus.Histogram
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// NewMetrics returns the process-wide audit metrics, registering them once.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "shieldgate_audit_queue_depth",
				Help: "Security events waiting in the audit buffer",
			}),
			Flushed: promauto.NewCounter(prometheus.CounterOpts{
				Name: "shieldgate_audit_flushed_total",
				Help: "Security events persisted to the audit store",
			}),
			Dropped: promauto.NewCounter(prometheus.CounterOpts{
				Name: "shieldgate_audit_dropped_total",
				Help: "Security events overwritten because the buffer was full",
			}),
			DroppedAfterRetry: promauto.NewCounter(prometheus.CounterOpts{
				Name: "shieldgate_audit_dropped_after_retry_total",
				Help: "Security events dropped after exhausting store retries",
			}),
			Retries: promauto.NewCounter(prometheus.CounterOpts{
				Name: "shieldgate_audit_retries_total",
				Help: "Retry attempts against the audit store",
			}),
			FlushDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "shieldgate_audit_flush_duration_seconds",
				Help:    "Time taken to flush a batch of security events",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			}),
		}
	})
	return metricsInstance
}
