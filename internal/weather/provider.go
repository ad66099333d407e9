// Package weather serves current conditions and 24-hour forecasts per
// location. Records come from QWeather when it answers and are synthesized
// locally otherwise; the record shape is the same either way.
package weather

import (
	"context"
	"errors"

	"agrimarket/internal/model"
)

var (
	// ErrTimeout is returned when the upstream does not answer in time.
	ErrTimeout = errors.New("weather: upstream timeout")
	// ErrNotFound is returned when the location cannot be resolved upstream.
	ErrNotFound = errors.New("weather: location not found")
	// ErrUpstream covers non-200 responses and undecodable payloads.
	ErrUpstream = errors.New("weather: upstream error")
)

// Provider is a source of weather data for a (province, city) pair.
type Provider interface {
	Current(ctx context.Context, province, city string) (model.WeatherRecord, error)
	Forecast24h(ctx context.Context, province, city string) ([]model.HourlyForecast, error)
}

// fallbackReason labels an upstream failure for metrics and logs.
func fallbackReason(err error) string {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case isCircuitOpen(err):
		return "circuit_open"
	default:
		return "upstream"
	}
}
