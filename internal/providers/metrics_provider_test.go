package providers

import (
	"archivist/internal/structures"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useTestRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	prevRegisterer, prevGatherer := prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = prevRegisterer
		prometheus.DefaultGatherer = prevGatherer
	})
}

func TestNoopMetrics_WhenDisabled(t *testing.T) {
	m := NewMetricsProvider(&structures.Config{Metrics: structures.MetricsConfig{Enabled: false}})
	_, ok := m.(*noopMetrics)
	assert.True(t, ok, "should return noopMetrics when disabled")

	m.IncRequestsTotal("/test", 200)
	m.ObserveRequestDuration("/test", time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.IncVersionsRecorded("update")
	m.IncUnchanged()
	m.IncFetchErrors("svc-a")
	m.ObserveSaveDuration(time.Millisecond)
	m.SetVersionsTotal(3)
}

func TestMetricsProvider_Counters(t *testing.T) {
	useTestRegistry(t)

	m := NewMetricsProvider(&structures.Config{Metrics: structures.MetricsConfig{Enabled: true}})
	mp, ok := m.(*MetricsProvider)
	require.True(t, ok, "should return MetricsProvider when enabled")

	m.IncVersionsRecorded("start_tracking")
	m.IncVersionsRecorded("update")
	m.IncVersionsRecorded("update")
	m.IncUnchanged()
	m.IncFetchErrors("svc-a")
	m.SetVersionsTotal(42)
	m.IncRequestsTotal("GET /versions", 200)
	m.ObserveSaveDuration(10 * time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(mp.versionsRecorded.WithLabelValues("update")))
	assert.Equal(t, float64(1), testutil.ToFloat64(mp.versionsRecorded.WithLabelValues("start_tracking")))
	assert.Equal(t, float64(1), testutil.ToFloat64(mp.unchanged))
	assert.Equal(t, float64(1), testutil.ToFloat64(mp.fetchErrors.WithLabelValues("svc-a")))
	assert.Equal(t, float64(42), testutil.ToFloat64(mp.versionsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(mp.requestsTotal.WithLabelValues("GET /versions", "2xx")))
}

func TestHttpStatusBucket(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{500, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, httpStatusBucket(tt.code))
	}
}
