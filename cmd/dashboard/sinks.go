package main

import (
	"context"
	"log/slog"

	"agrimarket/internal/gateway"
	"agrimarket/internal/model"
	"agrimarket/internal/series"
	redisstore "agrimarket/internal/store/redis"
)

// sinks hands refresh results to Redis when configured, so every process
// sharing it fans them out, and straight to the local hub otherwise or when
// publishing fails.
type sinks struct {
	hub *gateway.Hub
	pub *redisstore.Publisher
}

func (s sinks) series(ctx context.Context, task string, result any) {
	ser, ok := result.(*series.Series)
	if !ok {
		return
	}
	if s.pub != nil {
		err := s.pub.PublishSeries(ctx, ser)
		if err == nil {
			return
		}
		slog.Warn("series publish failed, broadcasting locally", "task", task, "error", err)
	}
	if err := s.hub.BroadcastSeries(ser); err != nil {
		slog.Error("series broadcast failed", "task", task, "error", err)
	}
}

func (s sinks) weather(ctx context.Context, task string, result any) {
	recs, ok := result.([]model.WeatherRecord)
	if !ok {
		return
	}
	for _, rec := range recs {
		if s.pub != nil {
			err := s.pub.PublishWeather(ctx, rec)
			if err == nil {
				continue
			}
			slog.Warn("weather publish failed, broadcasting locally", "task", task, "error", err)
		}
		if err := s.hub.BroadcastWeather(rec); err != nil {
			slog.Error("weather broadcast failed", "task", task, "error", err)
		}
	}
}
