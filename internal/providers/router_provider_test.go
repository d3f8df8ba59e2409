package providers

import (
	"archivist/internal/structures"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dummyHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestRouterProvider_GetAddsRoute(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/versions", dummyHandler())

	routes := rp.GetRoutes()
	require.Len(t, routes, 1)
	assert.Equal(t, "/versions", routes[0].Url)
	assert.Equal(t, http.MethodGet, routes[0].Method)
}

func TestRouterProvider_PostAddsRoute(t *testing.T) {
	rp := NewRouterProvider()
	rp.Post("/track", dummyHandler())

	routes := rp.GetRoutes()
	require.Len(t, routes, 1)
	assert.Equal(t, http.MethodPost, routes[0].Method)
}

func TestPattern(t *testing.T) {
	assert.Equal(t, "GET /versions/{id}", Pattern(structures.Route{Method: http.MethodGet, Url: "/versions/{id}"}))
	assert.Equal(t, "/health", Pattern(structures.Route{Url: "/health"}))
}

func TestNewServeMux_RejectsWrongMethod(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/versions", dummyHandler())
	mux := NewServeMux(rp)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/versions", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/versions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestNewServeMux_PathValues(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/versions/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.PathValue("id")))
	}))

	rr := httptest.NewRecorder()
	NewServeMux(rp).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/versions/abc", nil))
	assert.Equal(t, "abc", rr.Body.String())
}
