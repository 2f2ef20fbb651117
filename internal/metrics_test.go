package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, router http.Handler) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := NewMetrics()
	router := chi.NewRouter()
	router.Use(metrics.Middleware())
	router.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
	router.Get("/metrics", metrics.Handler().ServeHTTP)

	testReq := httptest.NewRequest("GET", "/ping", nil)
	testW := httptest.NewRecorder()
	router.ServeHTTP(testW, testReq)
	assert.Equal(t, http.StatusOK, testW.Code)
	assert.Equal(t, "pong", testW.Body.String())

	body := scrape(t, router)
	for _, metric := range []string{"http_requests_total", "http_request_duration_seconds", "go_goroutines"} {
		assert.Contains(t, body, metric)
	}
	assert.Contains(t, body, `route="/ping"`)
	assert.Contains(t, body, `status="200"`)
}

func TestMetricsWithChiRoutePatterns(t *testing.T) {
	metrics := NewMetrics()
	router := chi.NewRouter()
	router.Use(metrics.Middleware())
	router.Get("/manage/{entity}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	router.Get("/metrics", metrics.Handler().ServeHTTP)

	for _, path := range []string{"/manage/Item", "/manage/Vendor"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	body := scrape(t, router)
	assert.Contains(t, body, `http_requests_total{method="GET",route="/manage/{entity}",status="404"} 2`)
	assert.NotContains(t, body, `route="/manage/Item"`)
}

func TestMetricsRegistrySharedWithComponents(t *testing.T) {
	metrics := NewMetrics()
	router := chi.NewRouter()
	router.Get("/metrics", metrics.Handler().ServeHTTP)

	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "component_up", Help: "test gauge"})
	metrics.Registry().MustRegister(g)
	g.Set(1)

	body := scrape(t, router)
	assert.Contains(t, body, "component_up 1")
	assert.NotContains(t, body, "http_requests_total{")
}
