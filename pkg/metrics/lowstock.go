package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run results recorded by IncRun.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultSkipped = "skipped"
)

// LowStockMetrics records evaluator activity. A nil *LowStockMetrics is valid
// and records nothing.
type LowStockMetrics struct {
	duration prometheus.Histogram
	runs     *prometheus.CounterVec
	emails   *prometheus.CounterVec
	lowItems prometheus.Gauge
}

// NewLowStockMetrics registers the evaluator metrics on the provided registerer.
func NewLowStockMetrics(reg prometheus.Registerer) *LowStockMetrics {
	if reg == nil {
		return &LowStockMetrics{}
	}
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lowstock_run_duration_seconds",
		Help:    "Duration of low-stock evaluations in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lowstock_runs_total",
		Help: "Low-stock evaluations by result.",
	}, []string{"result"})
	emails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lowstock_emails_sent_total",
		Help: "Low-stock emails sent by channel.",
	}, []string{"channel"})
	lowItems := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lowstock_low_items",
		Help: "Items at or below minimum quantity as of the last evaluation.",
	})
	reg.MustRegister(duration, runs, emails, lowItems)
	return &LowStockMetrics{
		duration: duration,
		runs:     runs,
		emails:   emails,
		lowItems: lowItems,
	}
}

// ObserveDuration records how long one evaluation took.
func (m *LowStockMetrics) ObserveDuration(d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Observe(d.Seconds())
}

// IncRun counts an evaluation outcome.
func (m *LowStockMetrics) IncRun(result string) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncEmail counts a delivered email on the given channel.
func (m *LowStockMetrics) IncEmail(channel string) {
	if m == nil || m.emails == nil {
		return
	}
	m.emails.WithLabelValues(normalizeLabel(channel)).Inc()
}

// SetLowItems publishes the current low-stock count.
func (m *LowStockMetrics) SetLowItems(n int) {
	if m == nil || m.lowItems == nil {
		return
	}
	m.lowItems.Set(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
