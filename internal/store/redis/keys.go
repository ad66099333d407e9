package redis

import (
	"strings"

	"agrimarket/internal/model"
)

// Topic kinds carried over Redis PubSub.
const (
	KindSeries  = "series"
	KindWeather = "weather"
)

const channelPrefix = "pub:"

// SeriesLatestKey holds the newest full series of a range.
func SeriesLatestKey(r model.TimeRange) string { return "series:latest:" + string(r) }

// SeriesChannel carries series updates of a range.
func SeriesChannel(r model.TimeRange) string { return channelPrefix + KindSeries + ":" + string(r) }

// WeatherLatestKey holds the newest record of a location.
func WeatherLatestKey(location string) string { return "weather:latest:" + location }

// WeatherChannel carries weather updates of a location.
func WeatherChannel(location string) string { return channelPrefix + KindWeather + ":" + location }

// ChannelPatterns are the PSUBSCRIBE patterns covering every update channel.
var ChannelPatterns = []string{channelPrefix + KindSeries + ":*", channelPrefix + KindWeather + ":*"}

// ParseChannel splits "pub:<kind>:<key>" into kind and key.
func ParseChannel(channel string) (kind, key string, ok bool) {
	rest, found := strings.CutPrefix(channel, channelPrefix)
	if !found {
		return "", "", false
	}
	kind, key, ok = strings.Cut(rest, ":")
	if !ok || key == "" || (kind != KindSeries && kind != KindWeather) {
		return "", "", false
	}
	return kind, key, true
}
