package model

import "time"

// Provenance markers for weather records.
const (
	SourceQWeather    = "qweather"
	SourceSimulated   = "simulated"
	SourcePlaceholder = "placeholder"
)

// WeatherRecord is the current-conditions shape returned for a location,
// whether it came from the upstream provider or was synthesized locally.
type WeatherRecord struct {
	Province string `json:"province"`
	City     string `json:"city"`
	CityID   string `json:"city_id,omitempty"`

	Temperature   int     `json:"temperature"`
	FeelsLike     int     `json:"feels_like"`
	Condition     string  `json:"condition"`
	WindDir       string  `json:"wind_dir"`
	WindScale     string  `json:"wind_scale"`
	WindSpeed     float64 `json:"wind_speed"`
	Humidity      int     `json:"humidity"`
	Precipitation float64 `json:"precipitation"`
	Pressure      int     `json:"pressure"`
	Visibility    float64 `json:"visibility"`
	Cloud         int     `json:"cloud"`
	AirQuality    int     `json:"air_quality"`
	AirCategory   string  `json:"air_category"`
	Advisory      string  `json:"advisory"`

	ObservedAt time.Time `json:"observed_at"`
	Source     string    `json:"source"`
	Note       string    `json:"note,omitempty"`
}

// Simulated reports whether the record was synthesized locally.
func (r *WeatherRecord) Simulated() bool {
	return r.Source != SourceQWeather
}

// HourlyForecast is one hour of a 24-hour forecast.
type HourlyForecast struct {
	Time          time.Time `json:"time"`
	Temperature   int       `json:"temperature"`
	Condition     string    `json:"condition"`
	WindDir       string    `json:"wind_dir"`
	WindScale     string    `json:"wind_scale"`
	WindSpeed     float64   `json:"wind_speed"`
	Humidity      int       `json:"humidity"`
	Precipitation float64   `json:"precipitation"`
	PrecipChance  int       `json:"precip_chance"`
	Source        string    `json:"source"`
}
