package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveRequest("GET", "/api/viability", 200, 15*time.Millisecond)
	c.ObserveRequest("GET", "/api/viability", 400, time.Millisecond)
	c.ObserveRequest("GET", "", 404, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/viability", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/viability", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.HTTPDurations))
}

func TestObserveQuery(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)

	c.ObserveQuery("ctos_within", nil, time.Millisecond)
	c.ObserveQuery("ctos_within", errors.New("boom"), time.Millisecond)
	c.ObserveQuery("pops_within", nil, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.WarehouseQueries.WithLabelValues("ctos_within", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.WarehouseQueries.WithLabelValues("ctos_within", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.WarehouseQueries.WithLabelValues("pops_within", "ok")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveRequest("GET", "/", 200, time.Millisecond)
		c.ObserveQuery("stats", nil, time.Millisecond)
		c.ObserveRateLimited()
	})
}

func TestNewCollectorTwiceReusesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	require.NoError(t, err)
	second, err := NewCollector(reg)
	require.NoError(t, err)

	first.ObserveRateLimited()
	second.ObserveRateLimited()
	assert.Equal(t, 2.0, testutil.ToFloat64(first.RateLimited))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c, err := NewCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	c.ObserveQuery("stats", nil, time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `viabilidade_warehouse_queries_total{operation="stats",outcome="ok"} 1`)
}
