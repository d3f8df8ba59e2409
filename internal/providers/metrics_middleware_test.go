package providers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mockMetrics struct {
	requestEndpoint string
	requestStatus   int
	requestCalls    int
	durationCalls   int
}

func (m *mockMetrics) IncRequestsTotal(endpoint string, status int) {
	m.requestEndpoint = endpoint
	m.requestStatus = status
	m.requestCalls++
}
func (m *mockMetrics) ObserveRequestDuration(_ string, _ time.Duration) { m.durationCalls++ }
func (m *mockMetrics) IncCacheHits()                                    {}
func (m *mockMetrics) IncCacheMisses()                                  {}
func (m *mockMetrics) IncVersionsRecorded(_ string)                     {}
func (m *mockMetrics) IncUnchanged()                                    {}
func (m *mockMetrics) IncFetchErrors(_ string)                          {}
func (m *mockMetrics) ObserveSaveDuration(_ time.Duration)              {}
func (m *mockMetrics) SetVersionsTotal(_ int)                           {}

func TestMetricsMiddleware_CapturesStatusAndPath(t *testing.T) {
	metrics := &mockMetrics{}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/count", nil)
	rr := httptest.NewRecorder()
	MetricsMiddleware(metrics, handler).ServeHTTP(rr, req)

	assert.Equal(t, 1, metrics.requestCalls)
	assert.Equal(t, "/count", metrics.requestEndpoint)
	assert.Equal(t, http.StatusNotFound, metrics.requestStatus)
	assert.Equal(t, 1, metrics.durationCalls)
}

func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	metrics := &mockMetrics{}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /versions/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.PathValue("id")))
	})

	req := httptest.NewRequest(http.MethodGet, "/versions/0123abcd", nil)
	rr := httptest.NewRecorder()
	MetricsMiddleware(metrics, mux).ServeHTTP(rr, req)

	assert.Equal(t, "0123abcd", rr.Body.String())
	assert.Equal(t, "GET /versions/{id}", metrics.requestEndpoint)
	assert.Equal(t, http.StatusOK, metrics.requestStatus)
}

func TestStatusWriter_WriteHeader(t *testing.T) {
	rr := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rr, status: http.StatusOK}

	sw.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, sw.status)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
