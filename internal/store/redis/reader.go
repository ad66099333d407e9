package redis

import (
	"context"
	"errors"
	"fmt"
	"log"

	"agrimarket/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

// Reader reads back what Publisher stored and relays live updates.
type Reader struct {
	client *goredis.Client
}

// NewReader wraps a connected client.
func NewReader(client *goredis.Client) *Reader {
	return &Reader{client: client}
}

// LatestSeriesUpdate returns the last published update of a range, or nil
// when none is stored.
func (r *Reader) LatestSeriesUpdate(ctx context.Context, tr model.TimeRange) ([]byte, error) {
	return r.get(ctx, SeriesLatestKey(tr)+":update")
}

// LatestSeries returns the last published full series of a range, or nil.
func (r *Reader) LatestSeries(ctx context.Context, tr model.TimeRange) ([]byte, error) {
	return r.get(ctx, SeriesLatestKey(tr))
}

// LatestWeather returns the last published record of a location, or nil.
func (r *Reader) LatestWeather(ctx context.Context, location string) ([]byte, error) {
	return r.get(ctx, WeatherLatestKey(location))
}

// Warm hands every stored series update to fn, keyed by channel.
func (r *Reader) Warm(ctx context.Context, fn func(channel string, data []byte)) int {
	n := 0
	for _, tr := range model.TimeRanges {
		data, err := r.LatestSeriesUpdate(ctx, tr)
		if err != nil {
			log.Printf("[redis-reader] warm %s: %v", tr, err)
			continue
		}
		if data != nil {
			fn(SeriesChannel(tr), data)
			n++
		}
	}
	return n
}

// Subscribe relays every message on the update channels to fn until ctx is
// cancelled.
func (r *Reader) Subscribe(ctx context.Context, fn func(kind, key string, data []byte)) error {
	pubsub := r.client.PSubscribe(ctx, ChannelPatterns...)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe: %w", err)
	}
	log.Printf("[redis-reader] subscribed to %v", ChannelPatterns)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			kind, key, ok := ParseChannel(msg.Channel)
			if !ok {
				continue
			}
			fn(kind, key, []byte(msg.Payload))
		}
	}
}

func (r *Reader) get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", key, err)
	}
	return data, nil
}
