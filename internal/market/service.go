// Package market serves the commodity price series, product quotes and
// category trend analyses, all through the shared TTL cache.
package market

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"agrimarket/internal/cache"
	"agrimarket/internal/clock"
	"agrimarket/internal/model"
	"agrimarket/internal/refdata"
	"agrimarket/internal/series"
)

const (
	DefaultSeriesTTL  = time.Minute
	DefaultQuotesTTL  = 12 * time.Hour
	DefaultFetchDelay = 500 * time.Millisecond
)

// Cache key categories.
const (
	KeySeries = "market-series"
	KeyQuotes = "market-quotes"
)

// Option configures a Service.
type Option func(*Service)

func WithSeriesTTL(d time.Duration) Option {
	return func(s *Service) { s.seriesTTL = d }
}

func WithQuotesTTL(d time.Duration) Option {
	return func(s *Service) { s.quotesTTL = d }
}

// WithFetchDelay sets the simulated upstream latency paid on every
// recompute. Zero disables it.
func WithFetchDelay(d time.Duration) Option {
	return func(s *Service) { s.delay = d }
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithRand sets the random source used for quotes.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rng = r }
}

// Service is the market data facade used by the gateway and the refresher.
type Service struct {
	table     *refdata.Table
	builder   *series.Builder
	cache     *cache.TTL
	clock     clock.Clock
	rng       *rand.Rand
	quoter    *quoter
	seriesTTL time.Duration
	quotesTTL time.Duration
	delay     time.Duration
}

// NewService creates a market service over the given reference table.
func NewService(table *refdata.Table, builder *series.Builder, c *cache.TTL, opts ...Option) *Service {
	s := &Service{
		table:     table,
		builder:   builder,
		cache:     c,
		clock:     clock.Real{},
		seriesTTL: DefaultSeriesTTL,
		quotesTTL: DefaultQuotesTTL,
		delay:     DefaultFetchDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.quoter = newQuoter(s.rng)
	return s
}

// Series returns the commodity series for a range, ending now.
func (s *Service) Series(ctx context.Context, r model.TimeRange, force bool) (*series.Series, error) {
	r, err := model.ParseTimeRange(string(r))
	if err != nil {
		return nil, err
	}

	return cache.Fetch(ctx, s.cache, cache.Key(KeySeries, string(r)), s.seriesTTL, force,
		func(ctx context.Context) (*series.Series, error) {
			if err := s.wait(ctx); err != nil {
				return nil, err
			}
			ser, err := s.builder.BuildSafe(ctx, s.table.Commodities(), r.Window(s.clock.Now()))
			if err != nil {
				return nil, fmt.Errorf("build %s series: %w", r, err)
			}
			ser.Range = r
			return ser, nil
		})
}

// Summary is the per-commodity statistics of a range's series.
type Summary struct {
	Range       model.TimeRange `json:"range"`
	Records     int             `json:"records"`
	Stats       []series.Stats  `json:"stats"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Summary summarizes the (cached) series of a range.
func (s *Service) Summary(ctx context.Context, r model.TimeRange, force bool) (*Summary, error) {
	ser, err := s.Series(ctx, r, force)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Range:       ser.Range,
		Records:     ser.Len(),
		Stats:       series.SummarizeAll(ser),
		GeneratedAt: ser.GeneratedAt,
	}, nil
}

// Quotes returns the product quotes of a category. Unknown categories
// resolve to vegetables.
func (s *Service) Quotes(ctx context.Context, category string, force bool) (*QuoteSet, error) {
	cat := refdata.ParseCategory(category)
	return cache.Fetch(ctx, s.cache, cache.Key(KeyQuotes, string(cat)), s.quotesTTL, force,
		func(ctx context.Context) (*QuoteSet, error) {
			if err := s.wait(ctx); err != nil {
				return nil, err
			}
			return s.quoter.quoteSet(cat, s.table.Products(cat), s.clock.Now()), nil
		})
}

// TrendAnalysis analyzes the current quotes of a category.
func (s *Service) TrendAnalysis(ctx context.Context, category string, force bool) (*TrendAnalysis, error) {
	set, err := s.Quotes(ctx, category, force)
	if err != nil {
		return nil, err
	}
	return Analyze(set, s.clock.Now()), nil
}

// Categories lists the quotable product categories.
func (s *Service) Categories() []refdata.CategoryInfo {
	return refdata.Categories
}

// wait pays the simulated fetch latency, returning early on cancellation.
func (s *Service) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
