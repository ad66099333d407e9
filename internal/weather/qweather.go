package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"agrimarket/internal/model"
	"agrimarket/internal/refdata"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultGeoURL = "https://geoapi.qweather.com/v2"
	DefaultAPIURL = "https://devapi.qweather.com/v7"
)

// ClientConfig configures a QWeatherClient.
type ClientConfig struct {
	Key     string
	GeoURL  string
	APIURL  string
	Timeout time.Duration
	// RatePerSec and Burst bound outgoing requests. Zero disables limiting.
	RatePerSec float64
	Burst      int
}

// QWeatherClient talks to the QWeather HTTP APIs.
type QWeatherClient struct {
	key     string
	geoURL  string
	apiURL  string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter

	mu      sync.RWMutex
	cityIDs map[string]string
}

// NewQWeatherClient creates a client; empty URLs use the public endpoints.
func NewQWeatherClient(cfg ClientConfig) *QWeatherClient {
	if cfg.GeoURL == "" {
		cfg.GeoURL = DefaultGeoURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	c := &QWeatherClient{
		key:     cfg.Key,
		geoURL:  strings.TrimRight(cfg.GeoURL, "/"),
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		timeout: cfg.Timeout,
		http:    &http.Client{Timeout: cfg.Timeout},
		cityIDs: make(map[string]string),
	}
	if cfg.RatePerSec > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst)
	}
	return c
}

type geoResponse struct {
	Code     string `json:"code"`
	Location []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"location"`
}

type nowResponse struct {
	Code string `json:"code"`
	Now  *struct {
		ObsTime   string `json:"obsTime"`
		Temp      string `json:"temp"`
		FeelsLike string `json:"feelsLike"`
		Text      string `json:"text"`
		WindDir   string `json:"windDir"`
		WindScale string `json:"windScale"`
		WindSpeed string `json:"windSpeed"`
		Humidity  string `json:"humidity"`
		Precip    string `json:"precip"`
		Pressure  string `json:"pressure"`
		Vis       string `json:"vis"`
		Cloud     string `json:"cloud"`
	} `json:"now"`
}

type airResponse struct {
	Code string `json:"code"`
	Now  *struct {
		AQI      string `json:"aqi"`
		Category string `json:"category"`
	} `json:"now"`
}

type warningResponse struct {
	Code    string `json:"code"`
	Warning []struct {
		TypeName string `json:"typeName"`
		Level    string `json:"level"`
	} `json:"warning"`
}

type hourlyResponse struct {
	Code   string `json:"code"`
	Hourly []struct {
		FxTime    string `json:"fxTime"`
		Temp      string `json:"temp"`
		Text      string `json:"text"`
		WindDir   string `json:"windDir"`
		WindScale string `json:"windScale"`
		WindSpeed string `json:"windSpeed"`
		Humidity  string `json:"humidity"`
		Precip    string `json:"precip"`
		Pop       string `json:"pop"`
	} `json:"hourly"`
}

// CityID resolves a location to its QWeather id. Municipalities are looked
// up by province name with no admin filter. Results are cached for the
// life of the client.
func (c *QWeatherClient) CityID(ctx context.Context, province, city string) (string, error) {
	key := province + "-" + city
	c.mu.RLock()
	id, ok := c.cityIDs[key]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	location, adm := city, province
	if refdata.IsMunicipality(province) {
		location, adm = province, ""
	}
	q := url.Values{}
	q.Set("location", location)
	q.Set("adm", adm)
	q.Set("key", c.key)

	var resp geoResponse
	if err := c.get(ctx, c.geoURL+"/city/lookup?"+q.Encode(), &resp); err != nil {
		return "", err
	}
	if resp.Code != "200" || len(resp.Location) == 0 {
		return "", fmt.Errorf("%w: %s-%s (code %s)", ErrNotFound, province, city, resp.Code)
	}

	id = resp.Location[0].ID
	c.mu.Lock()
	c.cityIDs[key] = id
	c.mu.Unlock()
	return id, nil
}

// Current fetches conditions, air quality and warnings concurrently. Only
// the conditions call is required; air and warning failures leave their
// fields empty.
func (c *QWeatherClient) Current(ctx context.Context, province, city string) (model.WeatherRecord, error) {
	id, err := c.CityID(ctx, province, city)
	if err != nil {
		return model.WeatherRecord{}, err
	}

	var (
		now  nowResponse
		air  airResponse
		warn warningResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.get(gctx, c.endpoint("/weather/now", id), &now)
	})
	g.Go(func() error {
		if err := c.get(gctx, c.endpoint("/air/now", id), &air); err != nil {
			slog.Debug("qweather air quality unavailable", "city_id", id, "error", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := c.get(gctx, c.endpoint("/warning/now", id), &warn); err != nil {
			slog.Debug("qweather warnings unavailable", "city_id", id, "error", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.WeatherRecord{}, err
	}
	if now.Code != "200" || now.Now == nil {
		return model.WeatherRecord{}, fmt.Errorf("%w: weather/now code %s", ErrUpstream, now.Code)
	}

	n := now.Now
	rec := model.WeatherRecord{
		Province:      province,
		City:          city,
		CityID:        id,
		Temperature:   atoi(n.Temp),
		FeelsLike:     atoi(n.FeelsLike),
		Condition:     n.Text,
		WindDir:       n.WindDir,
		WindScale:     n.WindScale,
		WindSpeed:     atof(n.WindSpeed),
		Humidity:      atoi(n.Humidity),
		Precipitation: atof(n.Precip),
		Pressure:      atoi(n.Pressure),
		Visibility:    atof(n.Vis),
		Cloud:         atoi(n.Cloud),
		ObservedAt:    parseTime(n.ObsTime),
		Source:        model.SourceQWeather,
	}
	if air.Code == "200" && air.Now != nil {
		rec.AirQuality = atoi(air.Now.AQI)
		rec.AirCategory = air.Now.Category
	}
	if warn.Code == "200" {
		parts := make([]string, 0, len(warn.Warning))
		for _, w := range warn.Warning {
			parts = append(parts, w.TypeName+w.Level+"预警")
		}
		rec.Advisory = strings.Join(parts, ",")
	}
	return rec, nil
}

// Forecast24h fetches the hourly forecast for the next 24 hours.
func (c *QWeatherClient) Forecast24h(ctx context.Context, province, city string) ([]model.HourlyForecast, error) {
	id, err := c.CityID(ctx, province, city)
	if err != nil {
		return nil, err
	}
	var resp hourlyResponse
	if err := c.get(ctx, c.endpoint("/weather/24h", id), &resp); err != nil {
		return nil, err
	}
	if resp.Code != "200" || len(resp.Hourly) == 0 {
		return nil, fmt.Errorf("%w: weather/24h code %s", ErrUpstream, resp.Code)
	}

	out := make([]model.HourlyForecast, 0, len(resp.Hourly))
	for _, h := range resp.Hourly {
		out = append(out, model.HourlyForecast{
			Time:          parseTime(h.FxTime),
			Temperature:   atoi(h.Temp),
			Condition:     h.Text,
			WindDir:       h.WindDir,
			WindScale:     h.WindScale,
			WindSpeed:     atof(h.WindSpeed),
			Humidity:      atoi(h.Humidity),
			Precipitation: atof(h.Precip),
			PrecipChance:  atoi(h.Pop),
			Source:        model.SourceQWeather,
		})
	}
	return out, nil
}

func (c *QWeatherClient) endpoint(path, cityID string) string {
	q := url.Values{}
	q.Set("location", cityID)
	q.Set("key", c.key)
	return c.apiURL + path + "?" + q.Encode()
}

// get performs one rate-limited GET bounded by the client timeout and
// decodes the JSON body into out.
func (c *QWeatherClient) get(ctx context.Context, u string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return classify(err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUpstream, err)
	}
	return nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return int(atof(s))
	}
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02T15:04-07:00", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
