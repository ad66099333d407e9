package gateway

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agrimarket/internal/bargen"
	"agrimarket/internal/cache"
	"agrimarket/internal/clock"
	"agrimarket/internal/crop"
	"agrimarket/internal/market"
	"agrimarket/internal/metrics"
	"agrimarket/internal/model"
	"agrimarket/internal/refdata"
	"agrimarket/internal/series"
	"agrimarket/internal/weather"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, cfg Config) (*Server, *Hub) {
	t.Helper()
	clk := clock.NewManual(time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC))
	c := cache.New(cache.WithClock(clk))
	b := series.NewBuilder(bargen.New(bargen.WithSeed(3)), series.WithClock(clk))
	mkt := market.NewService(refdata.Default(), b, c,
		market.WithClock(clk), market.WithFetchDelay(0), market.WithRand(rand.New(rand.NewSource(1))))
	sim := weather.NewSimulator(weather.WithSimClock(clk), weather.WithSimRand(rand.New(rand.NewSource(2))))
	wx := weather.NewService(nil, c, weather.WithClock(clk), weather.WithSimulator(sim))
	crops := crop.NewService(c, crop.WithClock(clk), crop.WithFetchDelay(0), crop.WithRand(rand.New(rand.NewSource(4))))

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	hub := NewHub(m)
	return NewServer(cfg, hub, mkt, wx, crops, metrics.NewHealthStatus(), reg, m), hub
}

func get(t *testing.T, s http.Handler, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("%s: decode: %v\n%s", path, err, rec.Body.String())
		}
	}
	return rec
}

func TestServer_Series(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	var ser series.Series
	rec := get(t, s, "/api/v1/market/series?range=day", &ser)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ser.Range != model.RangeDay || len(ser.Commodities) != 3 {
		t.Errorf("unexpected series header range=%s commodities=%v", ser.Range, ser.Commodities)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}

	if rec := get(t, s, "/api/v1/market/series?range=decade", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid range: expected 400, got %d", rec.Code)
	}
}

func TestServer_SummaryQuotesTrend(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	var sum market.Summary
	if rec := get(t, s, "/api/v1/market/summary?range=week", &sum); rec.Code != http.StatusOK {
		t.Fatalf("summary status %d", rec.Code)
	}
	if sum.Records != 337 || len(sum.Stats) != 3 {
		t.Errorf("unexpected summary records=%d stats=%d", sum.Records, len(sum.Stats))
	}

	var set market.QuoteSet
	if rec := get(t, s, "/api/v1/market/quotes?category=fruits", &set); rec.Code != http.StatusOK {
		t.Fatalf("quotes status %d", rec.Code)
	}
	if set.Category != "fruits" || len(set.Quotes) == 0 {
		t.Errorf("unexpected quote set %s with %d quotes", set.Category, len(set.Quotes))
	}

	var ta market.TrendAnalysis
	if rec := get(t, s, "/api/v1/market/trend?category=fruits", &ta); rec.Code != http.StatusOK {
		t.Fatalf("trend status %d", rec.Code)
	}
	if ta.TotalProducts != len(set.Quotes) || ta.UpCount+ta.StableCount+ta.DownCount != ta.TotalProducts {
		t.Errorf("trend counts do not add up: %+v", ta)
	}

	var cats []refdata.CategoryInfo
	get(t, s, "/api/v1/market/categories", &cats)
	if len(cats) != len(refdata.Categories) {
		t.Errorf("expected %d categories, got %d", len(refdata.Categories), len(cats))
	}
}

func TestServer_Crops(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	var set crop.ProductionSet
	if rec := get(t, s, "/api/v1/crops?type=fruits", &set); rec.Code != http.StatusOK {
		t.Fatalf("crops status %d: %s", rec.Code, rec.Body.String())
	}
	if set.CropType != refdata.CropFruits || len(set.Crops) != 5 || set.Crops[1].Name != "苹果" {
		t.Errorf("unexpected fruit set %s %d", set.CropType, len(set.Crops))
	}

	var ta crop.TrendAnalysis
	if rec := get(t, s, "/api/v1/crops/trend?type=unknown", &ta); rec.Code != http.StatusOK {
		t.Fatalf("trend status %d", rec.Code)
	}
	if ta.CropType != refdata.CropGrains || ta.Summary.CropCount != 5 || ta.Highlights.LargestArea == nil {
		t.Errorf("unknown type should analyze grains, got %+v", ta)
	}

	var types []refdata.CropTypeInfo
	get(t, s, "/api/v1/crops/types", &types)
	if len(types) != 4 {
		t.Errorf("expected 4 crop types, got %d", len(types))
	}
}

func TestServer_Weather(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	var rec model.WeatherRecord
	if res := get(t, s, "/api/v1/weather?province=广东", &rec); res.Code != http.StatusOK {
		t.Fatalf("weather status %d", res.Code)
	}
	if rec.Province != "广东" || rec.City != "广州" || rec.Source != model.SourceSimulated {
		t.Errorf("unexpected record %+v", rec)
	}

	var hk model.WeatherRecord
	get(t, s, "/api/v1/weather?province=香港&city=香港", &hk)
	if hk.Source != model.SourcePlaceholder {
		t.Errorf("special region should be a placeholder, got %q", hk.Source)
	}

	var hours []model.HourlyForecast
	get(t, s, "/api/v1/weather/forecast?province=北京", &hours)
	if len(hours) != 24 {
		t.Errorf("expected 24 hourly points, got %d", len(hours))
	}

	var regions []refdata.Province
	get(t, s, "/api/v1/regions", &regions)
	if len(regions) != len(refdata.Provinces) {
		t.Errorf("expected %d provinces, got %d", len(refdata.Provinces), len(regions))
	}
}

func TestServer_HealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	var health struct {
		Status    string `json:"status"`
		WSClients int    `json:"ws_clients"`
	}
	if rec := get(t, s, "/api/v1/health", &health); rec.Code != http.StatusOK {
		t.Fatalf("health status %d", rec.Code)
	}
	if health.Status != "healthy" {
		t.Errorf("expected healthy, got %q", health.Status)
	}

	get(t, s, "/api/v1/market/categories", nil)
	rec := get(t, s, "/metrics", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "agri_http_requests_total") {
		t.Errorf("metrics should expose request counts, got %d", rec.Code)
	}

	if rec := get(t, s, "/healthz", nil); rec.Code != http.StatusOK {
		t.Errorf("healthz status %d", rec.Code)
	}
}

func TestServer_Missed(t *testing.T) {
	s, hub := newTestServer(t, Config{})
	for i := 0; i < 4; i++ {
		hub.Broadcast(KindSeries, "day", []byte(`{}`))
	}

	var out struct {
		Channel    string            `json:"channel"`
		CurrentSeq int64             `json:"current_seq"`
		Messages   []json.RawMessage `json:"messages"`
	}
	get(t, s, "/api/v1/missed?channel=series:day&from=3", &out)
	if out.CurrentSeq != 4 || len(out.Messages) != 2 {
		t.Errorf("unexpected backfill %+v", out)
	}

	if rec := get(t, s, "/api/v1/missed", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("missing channel: expected 400, got %d", rec.Code)
	}
	if rec := get(t, s, "/api/v1/missed?channel=x&from=abc", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad from: expected 400, got %d", rec.Code)
	}
}

func TestServer_RateLimit(t *testing.T) {
	s, _ := newTestServer(t, Config{RatePerSec: 0.001, Burst: 2})

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = get(t, s, "/api/v1/market/categories", nil).Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected codes %v", codes)
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/regions", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("unexpected preflight %d %v", rec.Code, rec.Header())
	}
}

func TestIPLimiter_Sweeps(t *testing.T) {
	l := newIPLimiter(1, 1)
	now := time.Now()
	l.allow("a", now)
	l.allow("b", now)
	l.allow("c", now.Add(sweepEvery))
	if len(l.limiters) != 1 {
		t.Errorf("idle buckets should be swept, have %d", len(l.limiters))
	}
}

func TestServer_WebSocketInitialState(t *testing.T) {
	s, hub := newTestServer(t, Config{})
	hub.Seed(KindSeries, "day", []byte(`{"records":289}`))

	srv := httptest.NewServer(s)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
	if !env.Initial || env.Range != "day" || string(env.Data) != `{"records":289}` {
		t.Errorf("unexpected initial envelope %+v", env)
	}
}
