// Package metrics exposes Prometheus collectors for the request governor and
// the HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ghexplorer/internal/governor"
)

const namespace = "ghexplorer"

// GovernorMetrics implements governor.Observer.
type GovernorMetrics struct {
	QueueDepth    prometheus.Gauge
	EnqueuedTotal prometheus.Counter
	Dispatches    *prometheus.CounterVec
	Retries       prometheus.Counter
	RetryDelay    prometheus.Histogram
	Outcomes      *prometheus.CounterVec
	WaitDuration  prometheus.Histogram
}

func NewGovernorMetrics() *GovernorMetrics {
	return &GovernorMetrics{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "governor",
			Name:      "queue_depth",
			Help:      "Number of work items waiting for dispatch.",
		}),
		EnqueuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "governor",
			Name:      "enqueued_total",
			Help:      "Number of submitted work items.",
		}),
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "governor",
			Name:      "dispatches_total",
			Help:      "Number of operation invocations, by attempt number.",
		}, []string{"attempt"}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "governor",
			Name:      "retries_total",
			Help:      "Number of quota-exceeded failures that were re-queued.",
		}),
		RetryDelay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "governor",
			Name:      "retry_delay_seconds",
			Help:      "Backoff delay scheduled before a retry.",
			Buckets:   []float64{1, 5, 15, 30, 45, 60, 90, 120, 300},
		}),
		Outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "governor",
			Name:      "settled_total",
			Help:      "Number of settled work items, by outcome.",
		}, []string{"outcome"}),
		WaitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "governor",
			Name:      "wait_seconds",
			Help:      "Time from submission to settlement.",
			Buckets:   []float64{0.1, 1, 5, 15, 35, 60, 120, 300, 600},
		}),
	}
}

// MustRegister registers every collector with reg and panics on conflict.
func (m *GovernorMetrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(m.QueueDepth, m.EnqueuedTotal, m.Dispatches, m.Retries, m.RetryDelay, m.Outcomes, m.WaitDuration)
}

func (m *GovernorMetrics) Enqueued(_ string, depth int) {
	m.EnqueuedTotal.Inc()
	m.QueueDepth.Set(float64(depth))
}

func (m *GovernorMetrics) Dispatched(_ string, attempt int) {
	m.Dispatches.WithLabelValues(strconv.Itoa(attempt)).Inc()
}

func (m *GovernorMetrics) RetryScheduled(_ string, _ int, delay time.Duration) {
	m.Retries.Inc()
	m.RetryDelay.Observe(delay.Seconds())
}

func (m *GovernorMetrics) Settled(_ string, outcome governor.Outcome, waited time.Duration, depth int) {
	m.Outcomes.WithLabelValues(string(outcome)).Inc()
	m.WaitDuration.Observe(waited.Seconds())
	m.QueueDepth.Set(float64(depth))
}

var _ governor.Observer = (*GovernorMetrics)(nil)
