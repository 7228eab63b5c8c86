package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsObserveRequest(t *testing.T) {
	m := NewHTTPMetrics(prometheus.NewRegistry())

	m.ObserveRequest("POST", "/low-stock/evaluate", 200, 30*time.Millisecond)
	m.ObserveRequest("POST", "/low-stock/evaluate", 409, time.Millisecond)
	m.ObserveRequest("GET", "", 404, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("POST", "/low-stock/evaluate", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("POST", "/low-stock/evaluate", "409")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	assert.NotPanics(t, func() { m.ObserveRequest("GET", "/healthz", 200, time.Millisecond) })
	assert.NotPanics(t, func() { NewHTTPMetrics(nil).ObserveRequest("GET", "/healthz", 200, time.Millisecond) })
}
