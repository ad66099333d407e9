// Package redis publishes refreshed market and weather data to Redis so
// that every dashboard process sharing the instance can fan it out.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"agrimarket/internal/breaker"
	"agrimarket/internal/metrics"
	"agrimarket/internal/model"
	"agrimarket/internal/series"

	goredis "github.com/go-redis/redis/v8"
)

const defaultLatestTTL = 30 * time.Minute

// WriterConfig configures the Redis publisher.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int

	LatestTTL    time.Duration // lifetime of the latest-value keys
	MaxFailures  int           // consecutive failures before the breaker opens
	ResetTimeout time.Duration // how long the breaker stays open
}

// pending is the newest payload held back while the breaker is open.
type pending struct {
	latestKey string
	channel   string
	data      []byte
	fullKey   string
	full      []byte
}

// Publisher writes the latest value and publishes an update in one pipeline.
// While the breaker is open only the newest payload per channel is kept,
// and it is flushed once Redis accepts writes again.
type Publisher struct {
	client  *goredis.Client
	ttl     time.Duration
	cb      *breaker.CircuitBreaker
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending map[string]pending
}

// Client returns the underlying Redis client for health checks and
// subscriptions.
func (p *Publisher) Client() *goredis.Client { return p.client }

// New creates a Publisher and pings the server.
func New(cfg WriterConfig, m *metrics.Metrics) (*Publisher, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewWithClient(client, cfg, m), nil
}

// NewWithClient wraps an existing client without pinging it.
func NewWithClient(client *goredis.Client, cfg WriterConfig, m *metrics.Metrics) *Publisher {
	if cfg.LatestTTL <= 0 {
		cfg.LatestTTL = defaultLatestTTL
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}

	p := &Publisher{
		client:  client,
		ttl:     cfg.LatestTTL,
		cb:      breaker.New(cfg.MaxFailures, cfg.ResetTimeout),
		metrics: m,
		pending: make(map[string]pending),
	}
	p.cb.OnStateChange = func(from, to breaker.State) {
		log.Printf("[redis] circuit %s -> %s", from, to)
		m.BreakerTransition("redis", int(to))
	}
	return p
}

// PublishSeries stores the full series under its latest key and publishes
// the compact update on the range channel.
func (p *Publisher) PublishSeries(ctx context.Context, s *series.Series) error {
	full, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}
	upd, err := json.Marshal(series.NewUpdate(s))
	if err != nil {
		return fmt.Errorf("encode series update: %w", err)
	}
	return p.publish(ctx, pending{
		latestKey: SeriesLatestKey(s.Range) + ":update",
		channel:   SeriesChannel(s.Range),
		data:      upd,
		fullKey:   SeriesLatestKey(s.Range),
		full:      full,
	})
}

// PublishWeather stores and publishes one location's record.
func (p *Publisher) PublishWeather(ctx context.Context, rec model.WeatherRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode weather: %w", err)
	}
	loc := rec.Province + "-" + rec.City
	return p.publish(ctx, pending{
		latestKey: WeatherLatestKey(loc),
		channel:   WeatherChannel(loc),
		data:      data,
	})
}

func (p *Publisher) publish(ctx context.Context, w pending) error {
	err := p.cb.Execute(func() error { return p.exec(ctx, w) })
	switch {
	case err == nil:
		p.metrics.Publish("ok")
		p.flush(ctx)
		return nil
	case errors.Is(err, breaker.ErrCircuitOpen):
		p.mu.Lock()
		p.pending[w.channel] = w
		p.mu.Unlock()
		p.metrics.Publish("deferred")
		return err
	default:
		p.metrics.Publish("error")
		log.Printf("[redis] publish %s failed: %v", w.channel, err)
		return err
	}
}

// exec runs SET (latest) + optional SET (full) + PUBLISH as one pipeline.
func (p *Publisher) exec(ctx context.Context, w pending) error {
	pipe := p.client.Pipeline()
	pipe.Set(ctx, w.latestKey, w.data, p.ttl)
	if w.fullKey != "" {
		pipe.Set(ctx, w.fullKey, w.full, p.ttl)
	}
	pipe.Publish(ctx, w.channel, w.data)
	_, err := pipe.Exec(ctx)
	return err
}

// flush replays payloads deferred while the breaker was open.
func (p *Publisher) flush(ctx context.Context) {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return
	}
	batch := p.pending
	p.pending = make(map[string]pending)
	p.mu.Unlock()

	flushed := 0
	for _, w := range batch {
		if err := p.exec(ctx, w); err != nil {
			log.Printf("[redis] flush %s failed: %v", w.channel, err)
			continue
		}
		flushed++
	}
	log.Printf("[redis] flushed %d deferred updates", flushed)
}

// Pending returns how many channels have a deferred payload.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Close closes the Redis client.
func (p *Publisher) Close() error {
	return p.client.Close()
}
