package weather

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agrimarket/internal/breaker"
	"agrimarket/internal/cache"
	"agrimarket/internal/clock"
	"agrimarket/internal/metrics"
	"agrimarket/internal/model"
	"agrimarket/internal/refdata"
)

const (
	DefaultTTL          = 5 * time.Minute
	DefaultMaxFailures  = 3
	DefaultResetTimeout = 30 * time.Minute
)

// Option configures a Service.
type Option func(*Service)

// WithTTL sets how long a location's record is served from cache.
func WithTTL(d time.Duration) Option {
	return func(s *Service) { s.ttl = d }
}

// WithBreaker sets how many consecutive upstream failures switch a location
// to simulated data, and for how long.
func WithBreaker(maxFailures int, reset time.Duration) Option {
	return func(s *Service) { s.maxFailures, s.reset = maxFailures, reset }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithSimulator replaces the fallback simulator.
func WithSimulator(sim *Simulator) Option {
	return func(s *Service) { s.sim = sim }
}

// Service resolves locations, caches results and falls back to simulated
// data whenever the provider fails or its breaker is open.
type Service struct {
	provider    Provider
	sim         *Simulator
	cache       *cache.TTL
	breakers    *breaker.Group
	ttl         time.Duration
	maxFailures int
	reset       time.Duration
	metrics     *metrics.Metrics
	clock       clock.Clock
}

// NewService creates a weather service. A nil provider serves simulated
// data only.
func NewService(provider Provider, c *cache.TTL, opts ...Option) *Service {
	s := &Service{
		provider:    provider,
		cache:       c,
		ttl:         DefaultTTL,
		maxFailures: DefaultMaxFailures,
		reset:       DefaultResetTimeout,
		clock:       clock.Real{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sim == nil {
		s.sim = NewSimulator(WithSimClock(s.clock))
	}
	if s.provider == nil {
		s.provider = s.sim
	}
	s.breakers = breaker.NewGroup(s.maxFailures, s.reset).WithClock(s.clock)
	s.breakers.OnStateChange = func(key string, from, to breaker.State) {
		s.metrics.BreakerTransition("weather:"+key, int(to))
		slog.Warn("weather breaker transition", "location", key, "from", from.String(), "to", to.String())
	}
	return s
}

// Current returns conditions for a location. Empty arguments resolve to the
// default province and its first city.
func (s *Service) Current(ctx context.Context, province, city string, force bool) (model.WeatherRecord, error) {
	province, city = refdata.ResolveLocation(province, city)
	if refdata.IsSpecialRegion(province) {
		return PlaceholderRecord(province, city, s.clock.Now()), nil
	}

	key := cache.Key("weather", province, city)
	return cache.Fetch(ctx, s.cache, key, s.ttl, force, func(ctx context.Context) (model.WeatherRecord, error) {
		var rec model.WeatherRecord
		err := s.breakers.Execute(locationKey(province, city), func() error {
			var err error
			rec, err = s.provider.Current(ctx, province, city)
			return err
		})
		if err == nil {
			s.metrics.WeatherRequest("ok")
			return rec, nil
		}
		if ctx.Err() != nil {
			return model.WeatherRecord{}, ctx.Err()
		}
		s.fallback(province, city, err)
		return s.sim.Record(province, city), nil
	})
}

// Forecast24h returns the hourly forecast for a location. Regions without
// coverage get a simulated forecast.
func (s *Service) Forecast24h(ctx context.Context, province, city string, force bool) ([]model.HourlyForecast, error) {
	province, city = refdata.ResolveLocation(province, city)
	if refdata.IsSpecialRegion(province) {
		return s.sim.Hourly(), nil
	}

	key := cache.Key("weather-24h", province, city)
	return cache.Fetch(ctx, s.cache, key, s.ttl, force, func(ctx context.Context) ([]model.HourlyForecast, error) {
		var out []model.HourlyForecast
		err := s.breakers.Execute(locationKey(province, city), func() error {
			var err error
			out, err = s.provider.Forecast24h(ctx, province, city)
			return err
		})
		if err == nil {
			s.metrics.WeatherRequest("ok")
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.fallback(province, city, err)
		return s.sim.Hourly(), nil
	})
}

// OpenLocations lists locations currently served from simulated data
// because their breaker is open.
func (s *Service) OpenLocations() []string {
	return s.breakers.Open()
}

func (s *Service) fallback(province, city string, err error) {
	reason := fallbackReason(err)
	if reason != "circuit_open" {
		s.metrics.WeatherRequest("error")
	}
	s.metrics.WeatherFallback(reason)
	slog.Warn("weather fallback to simulated data",
		"province", province, "city", city, "reason", reason, "error", err)
}

func locationKey(province, city string) string {
	return province + "-" + city
}

func isCircuitOpen(err error) bool {
	return errors.Is(err, breaker.ErrCircuitOpen)
}
