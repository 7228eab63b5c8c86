package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLowStockMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLowStockMetrics(reg)

	m.IncRun(ResultSuccess)
	m.IncRun(ResultSuccess)
	m.IncRun("")
	m.IncEmail("threshold")
	m.SetLowItems(4)
	m.ObserveDuration(250 * time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.runs.WithLabelValues(ResultSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.runs.WithLabelValues("unknown")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.emails.WithLabelValues("threshold")))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.lowItems))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestLowStockMetricsNilSafe(t *testing.T) {
	var m *LowStockMetrics
	assert.NotPanics(t, func() {
		m.IncRun(ResultFailure)
		m.IncEmail("daily")
		m.SetLowItems(1)
		m.ObserveDuration(time.Second)
	})

	empty := NewLowStockMetrics(nil)
	assert.NotPanics(t, func() { empty.IncRun(ResultSkipped) })
}
