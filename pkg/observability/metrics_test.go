package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	router := mux.NewRouter()
	router.Use(m.HTTPMetricsMiddleware)
	router.HandleFunc("/organizations/{organization_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	for _, orgID := range []string{"org-1", "org-2", "org-3"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/organizations/"+orgID, nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	// Three distinct org ids collapse into one template-labeled series
	counter, err := m.HTTPRequestsTotal.GetMetricWithLabelValues(http.MethodGet, "/organizations/{organization_id}", "200")
	require.NoError(t, err)
	assert.Equal(t, float64(3), testutil.ToFloat64(counter))

	// No raw-path series was created
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestsTotal))
}

func TestRouteLabelFallsBackToRawPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/not-routed", nil)
	assert.Equal(t, "/not-routed", routeLabel(req))
}
