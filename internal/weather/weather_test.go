package weather

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"agrimarket/internal/cache"
	"agrimarket/internal/clock"
	"agrimarket/internal/model"
)

func newFakeQWeather(t *testing.T, delay time.Duration) (*httptest.Server, *atomic.Value) {
	t.Helper()
	lastLookup := &atomic.Value{}
	mux := http.NewServeMux()
	mux.HandleFunc("/geo/city/lookup", func(w http.ResponseWriter, r *http.Request) {
		lastLookup.Store(r.URL.Query())
		if r.URL.Query().Get("location") == "无名" {
			_, _ = w.Write([]byte(`{"code":"404","location":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":"200","location":[{"id":"101010100","name":"北京"}]}`))
	})
	mux.HandleFunc("/api/weather/now", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		_, _ = w.Write([]byte(`{"code":"200","now":{"obsTime":"2024-03-01T12:00+08:00","temp":"12","feelsLike":"10",
			"text":"多云","windDir":"东北风","windScale":"3","windSpeed":"15","humidity":"40","precip":"0.0",
			"pressure":"1012","vis":"25","cloud":"60"}}`))
	})
	mux.HandleFunc("/api/air/now", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"200","now":{"aqi":"78","category":"良"}}`))
	})
	mux.HandleFunc("/api/warning/now", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"200","warning":[{"typeName":"大风","level":"蓝色"}]}`))
	})
	mux.HandleFunc("/api/weather/24h", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"200","hourly":[
			{"fxTime":"2024-03-01T13:00+08:00","temp":"13","text":"晴","windDir":"北风","windScale":"1-3","windSpeed":"8","humidity":"35","precip":"0.0","pop":"5"},
			{"fxTime":"2024-03-01T14:00+08:00","temp":"14","text":"晴","windDir":"北风","windScale":"1-3","windSpeed":"9","humidity":"33","precip":"0.0","pop":"0"}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, lastLookup
}

func newTestClient(srv *httptest.Server, timeout time.Duration) *QWeatherClient {
	return NewQWeatherClient(ClientConfig{
		Key:     "test-key",
		GeoURL:  srv.URL + "/geo",
		APIURL:  srv.URL + "/api",
		Timeout: timeout,
	})
}

func TestQWeatherClient_Current(t *testing.T) {
	srv, lookup := newFakeQWeather(t, 0)
	c := newTestClient(srv, time.Second)

	rec, err := c.Current(context.Background(), "北京", "朝阳区")
	if err != nil {
		t.Fatal(err)
	}
	if rec.CityID != "101010100" || rec.Temperature != 12 || rec.Condition != "多云" {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.AirQuality != 78 || rec.AirCategory != "良" {
		t.Errorf("air quality not merged: %+v", rec)
	}
	if rec.Advisory != "大风蓝色预警" {
		t.Errorf("unexpected advisory %q", rec.Advisory)
	}
	if rec.Source != model.SourceQWeather || rec.Simulated() {
		t.Errorf("expected qweather source, got %q", rec.Source)
	}

	q := lookup.Load().(url.Values)
	if q["location"][0] != "北京" || q["adm"][0] != "" {
		t.Errorf("municipality lookup should search by province, got %v", q)
	}
}

func TestQWeatherClient_Forecast24h(t *testing.T) {
	srv, _ := newFakeQWeather(t, 0)
	c := newTestClient(srv, time.Second)

	out, err := c.Forecast24h(context.Background(), "广东", "广州")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[1].Temperature != 14 || out[0].PrecipChance != 5 {
		t.Errorf("unexpected forecast %+v", out)
	}
}

func TestQWeatherClient_Timeout(t *testing.T) {
	srv, _ := newFakeQWeather(t, 300*time.Millisecond)
	c := newTestClient(srv, 50*time.Millisecond)

	_, err := c.Current(context.Background(), "北京", "北京")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestQWeatherClient_NotFound(t *testing.T) {
	srv, _ := newFakeQWeather(t, 0)
	c := newTestClient(srv, time.Second)

	_, err := c.Current(context.Background(), "河北", "无名")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type fakeProvider struct {
	calls atomic.Int32
	err   error
}

func (f *fakeProvider) Current(ctx context.Context, province, city string) (model.WeatherRecord, error) {
	f.calls.Add(1)
	if f.err != nil {
		return model.WeatherRecord{}, f.err
	}
	return model.WeatherRecord{Province: province, City: city, Temperature: 20, Source: model.SourceQWeather}, nil
}

func (f *fakeProvider) Forecast24h(ctx context.Context, province, city string) ([]model.HourlyForecast, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []model.HourlyForecast{{Temperature: 20, Source: model.SourceQWeather}}, nil
}

func newTestService(p Provider) (*Service, *clock.Manual) {
	clk := clock.NewManual(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))
	c := cache.New(cache.WithClock(clk))
	sim := NewSimulator(WithSimRand(rand.New(rand.NewSource(7))), WithSimClock(clk))
	return NewService(p, c, WithClock(clk), WithSimulator(sim)), clk
}

func TestService_DefaultsAndCache(t *testing.T) {
	p := &fakeProvider{}
	svc, clk := newTestService(p)
	ctx := context.Background()

	rec, err := svc.Current(ctx, "", "", false)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Province != "北京" || rec.City != "北京" {
		t.Errorf("expected default location, got %s-%s", rec.Province, rec.City)
	}
	_, _ = svc.Current(ctx, "北京", "北京", false)
	if p.calls.Load() != 1 {
		t.Errorf("expected cached second call, provider called %d times", p.calls.Load())
	}

	clk.Advance(DefaultTTL)
	_, _ = svc.Current(ctx, "北京", "", false)
	if p.calls.Load() != 2 {
		t.Errorf("expected refetch after TTL, provider called %d times", p.calls.Load())
	}
}

func TestService_FirstCityOfProvince(t *testing.T) {
	svc, _ := newTestService(&fakeProvider{})
	rec, _ := svc.Current(context.Background(), "广东", "", false)
	if rec.City != "广州" {
		t.Errorf("expected first city 广州, got %s", rec.City)
	}
}

func TestService_SpecialRegionPlaceholder(t *testing.T) {
	p := &fakeProvider{}
	svc, _ := newTestService(p)

	rec, err := svc.Current(context.Background(), "香港", "", false)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Source != model.SourcePlaceholder || rec.Note != PlaceholderNote {
		t.Errorf("expected placeholder, got %+v", rec)
	}
	if p.calls.Load() != 0 {
		t.Error("provider must not be called for special regions")
	}
}

func TestService_FallbackAndBreaker(t *testing.T) {
	p := &fakeProvider{err: ErrUpstream}
	svc, clk := newTestService(p)
	ctx := context.Background()

	for i := 0; i < DefaultMaxFailures; i++ {
		rec, err := svc.Current(ctx, "河北", "保定", true)
		if err != nil {
			t.Fatalf("fallback must not surface errors: %v", err)
		}
		if rec.Source != model.SourceSimulated {
			t.Fatalf("expected simulated record, got %q", rec.Source)
		}
	}
	if !slices.Contains(svc.OpenLocations(), "河北-保定") {
		t.Fatalf("expected breaker open, got %v", svc.OpenLocations())
	}

	_, _ = svc.Current(ctx, "河北", "保定", true)
	if p.calls.Load() != int32(DefaultMaxFailures) {
		t.Errorf("open breaker should short-circuit, provider called %d times", p.calls.Load())
	}

	p.err = nil
	clk.Advance(DefaultResetTimeout)
	rec, _ := svc.Current(ctx, "河北", "保定", true)
	if rec.Source != model.SourceQWeather {
		t.Errorf("expected upstream data after reset, got %q", rec.Source)
	}
	if len(svc.OpenLocations()) != 0 {
		t.Errorf("breaker should close after a successful probe")
	}
}

func TestService_Forecast(t *testing.T) {
	p := &fakeProvider{err: ErrTimeout}
	svc, _ := newTestService(p)

	out, err := svc.Forecast24h(context.Background(), "四川", "成都", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 24 || out[0].Source != model.SourceSimulated {
		t.Errorf("expected 24 simulated hours, got %d", len(out))
	}
}

func TestSimulator_WinterNorth(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC))
	sim := NewSimulator(WithSimRand(rand.New(rand.NewSource(1))), WithSimClock(clk))
	allowed := []string{"晴", "多云", "阴", "小雪", "中雪"}

	for i := 0; i < 200; i++ {
		rec := sim.Record("黑龙江", "哈尔滨")
		if rec.Temperature < -5 || rec.Temperature >= 5 {
			t.Fatalf("temperature %d outside winter north range", rec.Temperature)
		}
		if !slices.Contains(allowed, rec.Condition) {
			t.Fatalf("unexpected condition %q", rec.Condition)
		}
		if isWet(rec.Condition) && (rec.Humidity < 80 || rec.Humidity >= 95) {
			t.Fatalf("wet humidity %d out of range", rec.Humidity)
		}
		if !isWet(rec.Condition) && (rec.Humidity < 40 || rec.Humidity >= 70) {
			t.Fatalf("dry humidity %d out of range", rec.Humidity)
		}
		if rec.Condition == "晴" && rec.Cloud >= 20 {
			t.Fatalf("clear sky cloud %d", rec.Cloud)
		}
		if rec.Pressure < 1000 || rec.Pressure >= 1015 || rec.AirQuality < 50 || rec.AirQuality >= 200 {
			t.Fatalf("pressure/aqi out of range: %+v", rec)
		}
	}
}

func TestSimulator_SummerSouthTemperature(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC))
	sim := NewSimulator(WithSimRand(rand.New(rand.NewSource(2))), WithSimClock(clk))
	for i := 0; i < 100; i++ {
		rec := sim.Record("广东", "广州")
		if rec.Temperature < 30 || rec.Temperature >= 38 {
			t.Fatalf("temperature %d outside summer south range", rec.Temperature)
		}
	}
}

func TestSimulator_Hourly(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 4, 1, 8, 30, 0, 0, time.UTC))
	sim := NewSimulator(WithSimRand(rand.New(rand.NewSource(3))), WithSimClock(clk))

	out := sim.Hourly()
	if len(out) != 24 {
		t.Fatalf("expected 24 points, got %d", len(out))
	}
	for i, h := range out {
		if h.Time.Hour() != (8+i)%24 {
			t.Errorf("point %d at hour %d", i, h.Time.Hour())
		}
		if isWet(h.Condition) && h.PrecipChance < 50 {
			t.Errorf("rain with precip chance %d", h.PrecipChance)
		}
		if !isWet(h.Condition) && (h.PrecipChance >= 20 || h.Precipitation != 0) {
			t.Errorf("dry hour with precip %v/%d", h.Precipitation, h.PrecipChance)
		}
	}
}
