package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/phonebook/internal/app/system/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := metrics.New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/members/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"1", "2", "3"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/members/"+id, nil))
	}

	got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/members/{id}", "404"))
	assert.Equal(t, float64(3), got)
}

func TestObserveROR(t *testing.T) {
	m := metrics.New()
	m.ObserveROR("ok", 120*time.Millisecond)
	m.ObserveROR("unavailable", time.Second)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RORRequests.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RORRequests.WithLabelValues("unavailable")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveROR("ok", time.Millisecond)
	m.ObserveLogin("success")
}

func TestHandler_Exposition(t *testing.T) {
	m := metrics.New()
	m.ObserveLogin("success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `phonebook_logins_total{outcome="success"} 1`))
}
