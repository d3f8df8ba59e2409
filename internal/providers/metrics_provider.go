package providers

import (
	"archivist/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncVersionsRecorded(category string)
	IncUnchanged()
	IncFetchErrors(service string)
	ObserveSaveDuration(duration time.Duration)
	SetVersionsTotal(count int)
}

type MetricsProvider struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	versionsRecorded *prometheus.CounterVec
	unchanged        prometheus.Counter
	fetchErrors      *prometheus.CounterVec
	saveDuration     prometheus.Histogram
	versionsTotal    prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncVersionsRecorded(category string) {
	m.versionsRecorded.WithLabelValues(category).Inc()
}

func (m *MetricsProvider) IncUnchanged() {
	m.unchanged.Inc()
}

func (m *MetricsProvider) IncFetchErrors(service string) {
	m.fetchErrors.WithLabelValues(service).Inc()
}

func (m *MetricsProvider) ObserveSaveDuration(duration time.Duration) {
	m.saveDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) SetVersionsTotal(count int) {
	m.versionsTotal.Set(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "archivist_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "archivist_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "archivist_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "archivist_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		versionsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "archivist_versions_recorded_total",
			Help: "Total number of recorded versions by commit category",
		}, []string{"category"}),

		unchanged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "archivist_unchanged_total",
			Help: "Total number of saves that produced no new version",
		}),

		fetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "archivist_fetch_errors_total",
			Help: "Total number of failed document fetches",
		}, []string{"service"}),

		saveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "archivist_save_duration_seconds",
			Help:    "Duration of version save operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		versionsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "archivist_versions_total",
			Help: "Number of document versions in the repository",
		}),
	}
}

// noopMetrics is used when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncVersionsRecorded(_ string)                     {}
func (n *noopMetrics) IncUnchanged()                                    {}
func (n *noopMetrics) IncFetchErrors(_ string)                          {}
func (n *noopMetrics) ObserveSaveDuration(_ time.Duration)              {}
func (n *noopMetrics) SetVersionsTotal(_ int)                           {}
