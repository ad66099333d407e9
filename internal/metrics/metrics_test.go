package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var pb dto.Metric
	if err := c.Write(&pb); err != nil {
		t.Fatal(err)
	}
	return pb.GetCounter().GetValue()
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.CacheHit("x")
	m.CacheMiss("x")
	m.CacheCompute("x", nil)
	m.ObserveSeries("day", 10, time.Millisecond)
	m.ObserveRefresh("market", time.Millisecond, errors.New("boom"))
	m.BreakerTransition("k", 1)
	m.HTTPRequest("/x", 200)
}

func TestNewMetrics_FreshRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.CacheHit("market-series")
	m.CacheHit("market-series")
	m.BreakerTransition("北京-北京", 1)
	m.HTTPRequest("/api/v1/health", 200)

	if got := counterValue(t, m.CacheHits.WithLabelValues("market-series")); got != 2 {
		t.Errorf("cache hits: got %v, want 2", got)
	}
	if got := counterValue(t, m.BreakerTrips); got != 1 {
		t.Errorf("breaker trips: got %v, want 1", got)
	}
	if got := counterValue(t, m.HTTPRequests.WithLabelValues("/api/v1/health", "200")); got != 1 {
		t.Errorf("http requests: got %v, want 1", got)
	}

	// A second registry must accept the same metric names.
	NewMetrics(prometheus.NewRegistry())
}

func TestHealthStatus_OptionalDependencies(t *testing.T) {
	h := NewHealthStatus()

	if s, code := h.Status(); s != "healthy" || code != http.StatusOK {
		t.Fatalf("no deps configured: got %s/%d", s, code)
	}

	h.EnableRedis()
	if s, _ := h.Status(); s != "degraded" {
		t.Errorf("redis configured but down: got %s", s)
	}
	h.SetRedisConnected(true)
	h.RecordRefresh(time.Now(), errors.New("timeout"))
	if s, _ := h.Status(); s != "degraded" {
		t.Errorf("refresh failing: got %s", s)
	}
	h.RecordRefresh(time.Now(), nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "healthy" {
		t.Errorf("expected healthy, got %s", body.Status)
	}
}

func TestItoa(t *testing.T) {
	for n, want := range map[int]string{0: "0", 200: "200", 503: "503", -7: "-7"} {
		if got := itoa(n); got != want {
			t.Errorf("itoa(%d) = %q", n, got)
		}
	}
}
