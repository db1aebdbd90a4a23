package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMeter returns a meter provider backed by a manual reader.
func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})
	return mp, reader
}

// findMetricByName collects and finds a metric by name.
func findMetricByName(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func metricsRouter(mp *sdkmetric.MeterProvider) *gin.Engine {
	router := gin.New()
	if mp != nil {
		router.Use(HTTPMetrics(mp.Meter("test")))
	} else {
		router.Use(HTTPMetrics(nil))
	}
	router.GET("/bills/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{})
	})
	router.POST("/bills", func(c *gin.Context) {
		c.JSON(http.StatusConflict, gin.H{})
	})
	return router
}

func TestHTTPMetrics_NilMeter(t *testing.T) {
	w := httptest.NewRecorder()
	metricsRouter(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bills/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPMetrics_RequestCounter(t *testing.T) {
	mp, reader := setupTestMeter(t)
	router := metricsRouter(mp)

	for _, path := range []string{"/bills/1", "/bills/2"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/bills", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	m := findMetricByName(t, reader, "http_server_request_total")
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	counts := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		route, _ := dp.Attributes.Value("http_route")
		status, _ := dp.Attributes.Value("http_status_code")
		counts[route.AsString()+" "+status.Emit()] += dp.Value
	}
	assert.Equal(t, int64(2), counts["/bills/:id 200"])
	assert.Equal(t, int64(1), counts["/bills 409"])
	assert.Equal(t, int64(1), counts["unknown 404"])
}

func TestHTTPMetrics_RequestDuration(t *testing.T) {
	mp, reader := setupTestMeter(t)
	metricsRouter(mp).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bills/1", nil))

	m := findMetricByName(t, reader, "http_server_request_duration_seconds")
	require.NotNil(t, m)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)

	method, ok := hist.DataPoints[0].Attributes.Value(attribute.Key("http_method"))
	require.True(t, ok)
	assert.Equal(t, http.MethodGet, method.AsString())
}

func TestHTTPMetrics_ActiveRequestsSettle(t *testing.T) {
	mp, reader := setupTestMeter(t)
	metricsRouter(mp).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bills/1", nil))

	m := findMetricByName(t, reader, "http_server_active_requests")
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Zero(t, total)
}
