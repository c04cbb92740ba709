package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the admission collectors. Methods are safe on a nil receiver
// so components can run without metrics in tests.
type Metrics struct {
	Decisions              *prometheus.CounterVec
	Denials                *prometheus.CounterVec
	ValidationFailures     *prometheus.CounterVec
	FailOpen               *prometheus.CounterVec
	StageDuration          *prometheus.HistogramVec
	BruteForceBlocks       prometheus.Counter
	FallbackState          prometheus.Gauge
	FallbackDecisions      prometheus.Counter
	CleanupRunsTotal       *prometheus.CounterVec
	CleanupEvictionsTotal  *prometheus.CounterVec
	CleanupDurationSeconds prometheus.Histogram
}

// New registers the admission collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shieldgate_admission_decisions_total",
			Help: "Admission outcomes by final state",
		}, []string{"outcome", "class"}),
		Denials: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shieldgate_admission_rate_limit_denials_total",
			Help: "Rate limit denials by failed gate",
		}, []string{"gate", "class"}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shieldgate_admission_validation_failures_total",
			Help: "Rejected requests by validator step",
		}, []string{"reason", "pattern"}),
		FailOpen: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shieldgate_admission_fail_open_total",
			Help: "Controller faults recovered by letting the request through",
		}, []string{"stage"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shieldgate_admission_stage_duration_seconds",
			Help:    "Time spent in each admission stage",
			Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		}, []string{"stage"}),
		BruteForceBlocks: factory.NewCounter(prometheus.CounterOpts{
			Name: "shieldgate_admission_brute_force_blocks_total",
			Help: "IPs blocked after repeated authentication failures",
		}),
		FallbackState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "shieldgate_admission_fallback_state",
			Help: "Rate limit store breaker state (0 closed, 1 open, 2 half open)",
		}),
		FallbackDecisions: factory.NewCounter(prometheus.CounterOpts{
			Name: "shieldgate_admission_fallback_decisions_total",
			Help: "Rate limit decisions served by the local fallback store",
		}),
		CleanupRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shieldgate_admission_cleanup_runs_total",
			Help: "Total number of cleanup runs",
		}, []string{"status"}),
		CleanupEvictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shieldgate_admission_cleanup_evictions_total",
			Help: "Idle records evicted by the cleanup worker",
		}, []string{"store"}),
		CleanupDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "shieldgate_admission_cleanup_duration_seconds",
			Help: "Duration of cleanup runs in seconds",
		}),
	}
}

func (m *Metrics) IncrementDecision(outcome, class string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(outcome, class).Inc()
}

func (m *Metrics) IncrementDenial(gate, class string) {
	if m == nil {
		return
	}
	m.Denials.WithLabelValues(gate, class).Inc()
}

func (m *Metrics) IncrementValidationFailure(reason string, pattern bool) {
	if m == nil {
		return
	}
	label := "false"
	if pattern {
		label = "true"
	}
	m.ValidationFailures.WithLabelValues(reason, label).Inc()
}

func (m *Metrics) IncrementFailOpen(stage string) {
	if m == nil {
		return
	}
	m.FailOpen.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) IncrementBruteForceBlocks() {
	if m == nil {
		return
	}
	m.BruteForceBlocks.Inc()
}

func (m *Metrics) SetFallbackState(state int) {
	if m == nil {
		return
	}
	m.FallbackState.Set(float64(state))
}

func (m *Metrics) IncrementFallbackDecisions() {
	if m == nil {
		return
	}
	m.FallbackDecisions.Inc()
}

func (m *Metrics) IncrementCleanupRuns(status string) {
	if m == nil {
		return
	}
	m.CleanupRunsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) AddCleanupEvictions(store string, n int) {
	if m == nil {
		return
	}
	m.CleanupEvictionsTotal.WithLabelValues(store).Add(float64(n))
}

func (m *Metrics) ObserveCleanupDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.CleanupDurationSeconds.Observe(d.Seconds())
}
