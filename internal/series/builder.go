// Package series assembles generated bars and their indicators into one
// record per timestamp and summarizes the result.
package series

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"agrimarket/internal/bargen"
	"agrimarket/internal/clock"
	"agrimarket/internal/indicator"
	"agrimarket/internal/metrics"
	"agrimarket/internal/model"
	"agrimarket/internal/refdata"
)

// Builder drives the bar generator and a fresh indicator engine per build.
type Builder struct {
	gen     *bargen.Generator
	strict  bool
	clock   clock.Clock
	metrics *metrics.Metrics
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithStrictWarmup withholds moving averages until their window is full.
func WithStrictWarmup(strict bool) BuilderOption {
	return func(b *Builder) { b.strict = strict }
}

// WithClock sets the clock stamped into GeneratedAt.
func WithClock(c clock.Clock) BuilderOption {
	return func(b *Builder) { b.clock = c }
}

// WithMetrics records build latency and bar counts.
func WithMetrics(m *metrics.Metrics) BuilderOption {
	return func(b *Builder) { b.metrics = m }
}

// NewBuilder creates a Builder around gen.
func NewBuilder(gen *bargen.Generator, opts ...BuilderOption) *Builder {
	b := &Builder{gen: gen, clock: clock.Real{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build generates the window tick by tick. Each tick's bars are fed to the
// engine before the next tick is generated, so indicators only ever see
// earlier bars of the same commodity.
func (b *Builder) Build(ctx context.Context, commodities []refdata.Commodity, w model.TimeWindow) (*Series, error) {
	start := time.Now()

	names := make([]string, len(commodities))
	for i, c := range commodities {
		names[i] = c.Name
	}

	engine := indicator.NewEngine(indicator.WithStrictWarmup(b.strict))
	s := &Series{
		Window:      w,
		Commodities: names,
		Records:     make([]Record, 0, w.Ticks()),
	}

	err := b.gen.Stream(ctx, commodities, w, func(t bargen.Tick) error {
		rec := Record{
			Timestamp:   t.Time.UnixMilli(),
			Time:        t.Time,
			Commodities: names,
			Values:      make(map[string]CommodityPoint, len(t.Bars)),
		}
		for _, bar := range t.Bars {
			f, err := engine.Process(bar)
			if err != nil {
				return err
			}
			rec.Values[bar.Commodity] = CommodityPoint{Bar: bar, Indicators: f}
			rec.Volume += bar.Volume
			rec.Trades += bar.Trades
		}
		s.Records = append(s.Records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.GeneratedAt = b.clock.Now()
	b.metrics.ObserveSeries(w.Interval().String(), len(s.Records)*len(commodities), time.Since(start))
	return s, nil
}

// BuildSafe is Build with the local error conditions absorbed: an invalid
// window or bar yields an empty series. Context errors are still returned.
func (b *Builder) BuildSafe(ctx context.Context, commodities []refdata.Commodity, w model.TimeWindow) (*Series, error) {
	s, err := b.Build(ctx, commodities, w)
	if err == nil {
		return s, nil
	}

	var reason string
	switch {
	case errors.Is(err, model.ErrInvalidWindow):
		reason = "invalid_window"
	case errors.Is(err, model.ErrInvalidBar):
		reason = "invalid_bar"
	default:
		return nil, err
	}

	slog.Warn("series build failed, serving empty series",
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
	b.metrics.SeriesFallbackInc(reason)

	names := make([]string, len(commodities))
	for i, c := range commodities {
		names[i] = c.Name
	}
	return Empty(names, w, b.clock.Now()), nil
}
