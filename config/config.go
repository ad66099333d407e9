// Package config loads the dashboard configuration: a YAML file, then a
// .env file, then AGRI_* environment overrides, then defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. AGRI_REDIS_ADDR.
const EnvPrefix = "AGRI"

// Config holds all application configuration.
type Config struct {
	LogLevel string `yaml:"log_level" split_words:"true"`

	HTTP struct {
		Addr        string        `yaml:"addr"`
		AllowOrigin string        `yaml:"allow_origin" split_words:"true"`
		RatePerSec  float64       `yaml:"rate_per_sec" split_words:"true"`
		Burst       int           `yaml:"burst"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"http"`

	MetricsAddr string `yaml:"metrics_addr" split_words:"true"`

	Redis struct {
		Addr      string        `yaml:"addr"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		LatestTTL time.Duration `yaml:"latest_ttl" split_words:"true"`
	} `yaml:"redis"`

	Cache struct {
		SingleFlight    bool          `yaml:"single_flight" split_words:"true"`
		MarketSeriesTTL time.Duration `yaml:"market_series_ttl" split_words:"true"`
		MarketQuotesTTL time.Duration `yaml:"market_quotes_ttl" split_words:"true"`
		WeatherTTL      time.Duration `yaml:"weather_ttl" split_words:"true"`
		CropTTL         time.Duration `yaml:"crop_ttl" split_words:"true"`
	} `yaml:"cache"`

	Refresh struct {
		SeriesSpec  string   `yaml:"series_spec" split_words:"true"`
		WeatherSpec string   `yaml:"weather_spec" split_words:"true"`
		Ranges      []string `yaml:"ranges"`
		Locations   []string `yaml:"locations"` // "province-city"
	} `yaml:"refresh"`

	Weather struct {
		Key          string        `yaml:"key"`
		GeoURL       string        `yaml:"geo_url" split_words:"true"`
		APIURL       string        `yaml:"api_url" split_words:"true"`
		Timeout      time.Duration `yaml:"timeout"`
		RatePerSec   float64       `yaml:"rate_per_sec" split_words:"true"`
		Burst        int           `yaml:"burst"`
		MaxFailures  int           `yaml:"max_failures" split_words:"true"`
		ResetTimeout time.Duration `yaml:"reset_timeout" split_words:"true"`
	} `yaml:"weather"`

	Refdata struct {
		SQLitePath string `yaml:"sqlite_path" envconfig:"SQLITE_PATH"`
	} `yaml:"refdata"`

	Series struct {
		Commodities []string `yaml:"commodities"` // empty means every commodity in refdata
	} `yaml:"series"`

	Indicator struct {
		StrictWarmup bool `yaml:"strict_warmup" split_words:"true"`
	} `yaml:"indicator"`

	Market struct {
		FetchDelay time.Duration `yaml:"fetch_delay" split_words:"true"`
		Seed       int64         `yaml:"seed"`
	} `yaml:"market"`
}

// Load reads path (missing file is fine), applies .env and AGRI_*
// overrides, fills defaults and validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// .env is optional; it only seeds variables not already set.
	_ = godotenv.Load()

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RatePerSec == 0 {
		c.HTTP.RatePerSec = 20
	}
	if c.HTTP.Burst == 0 {
		c.HTTP.Burst = 50
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 15 * time.Second
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9090"
	}
	if c.Redis.LatestTTL == 0 {
		c.Redis.LatestTTL = 30 * time.Minute
	}
	if c.Cache.MarketSeriesTTL == 0 {
		c.Cache.MarketSeriesTTL = time.Minute
	}
	if c.Cache.MarketQuotesTTL == 0 {
		c.Cache.MarketQuotesTTL = 12 * time.Hour
	}
	if c.Cache.WeatherTTL == 0 {
		c.Cache.WeatherTTL = 5 * time.Minute
	}
	if c.Cache.CropTTL == 0 {
		c.Cache.CropTTL = 24 * time.Hour
	}
	if c.Refresh.SeriesSpec == "" {
		c.Refresh.SeriesSpec = "@every 60s"
	}
	if c.Refresh.WeatherSpec == "" {
		c.Refresh.WeatherSpec = "@every 5m"
	}
	if len(c.Refresh.Ranges) == 0 {
		c.Refresh.Ranges = []string{"day"}
	}
	if len(c.Refresh.Locations) == 0 {
		c.Refresh.Locations = []string{"北京-北京"}
	}
	if c.Weather.Timeout == 0 {
		c.Weather.Timeout = 5 * time.Second
	}
	if c.Weather.RatePerSec == 0 {
		c.Weather.RatePerSec = 5
	}
	if c.Weather.Burst == 0 {
		c.Weather.Burst = 5
	}
	if c.Weather.MaxFailures == 0 {
		c.Weather.MaxFailures = 3
	}
	if c.Weather.ResetTimeout == 0 {
		c.Weather.ResetTimeout = 30 * time.Minute
	}
	if c.Market.FetchDelay == 0 {
		c.Market.FetchDelay = 500 * time.Millisecond
	}
}

// Validate checks value ranges after defaults are applied.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Burst < 0 || c.Weather.Burst < 0 {
		errs = append(errs, errors.New("burst must not be negative"))
	}
	if c.Weather.MaxFailures < 1 {
		errs = append(errs, errors.New("weather.max_failures must be at least 1"))
	}
	for _, d := range []struct {
		name string
		v    time.Duration
	}{
		{"cache.market_series_ttl", c.Cache.MarketSeriesTTL},
		{"cache.market_quotes_ttl", c.Cache.MarketQuotesTTL},
		{"cache.weather_ttl", c.Cache.WeatherTTL},
		{"cache.crop_ttl", c.Cache.CropTTL},
		{"weather.timeout", c.Weather.Timeout},
		{"weather.reset_timeout", c.Weather.ResetTimeout},
	} {
		if d.v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", d.name))
		}
	}
	if c.Market.FetchDelay < 0 {
		errs = append(errs, errors.New("market.fetch_delay must not be negative"))
	}
	for _, loc := range c.Refresh.Locations {
		if _, _, ok := SplitLocation(loc); !ok {
			errs = append(errs, fmt.Errorf("refresh.locations: %q is not province-city", loc))
		}
	}
	return errors.Join(errs...)
}

// SplitLocation splits "province-city".
func SplitLocation(loc string) (province, city string, ok bool) {
	province, city, ok = strings.Cut(loc, "-")
	if !ok || province == "" || city == "" {
		return "", "", false
	}
	return province, city, true
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool { return c.Redis.Addr != "" }
