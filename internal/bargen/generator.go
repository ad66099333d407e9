// Package bargen synthesizes OHLCV bars around a commodity's base price,
// applying seasonal and intraday drift.
package bargen

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"agrimarket/internal/model"
	"agrimarket/internal/refdata"

	"github.com/shopspring/decimal"
)

const (
	seasonalAmplitude = 0.2
	intradayAmplitude = 0.1
	volatilityPct     = 0.02  // volatility / basePrice
	openJitter        = 0.005 // open = adjusted · (1 ± openJitter)
	priceDecimals     = 3

	minVolume = 500
	maxVolume = 1500
	minTrades = 50
	maxTrades = 150
)

// Tick is every commodity's bar at one sample instant, in request order.
type Tick struct {
	Time time.Time
	Bars []model.Bar
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand sets the random source. The Generator takes ownership of r.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// WithSeed seeds a private random source.
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

// WithLocation sets the zone used to read month and hour for drift factors.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) { g.loc = loc }
}

// Generator produces bars. Safe for concurrent use; draws from the random
// source are serialized.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	loc *time.Location
}

// New creates a Generator seeded from the wall clock unless overridden.
func New(opts ...Option) *Generator {
	g := &Generator{loc: time.Local}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return g
}

// Generate returns every bar of the window in chronological order; within one
// timestamp bars follow the order of commodities.
func (g *Generator) Generate(commodities []refdata.Commodity, w model.TimeWindow) ([]model.Bar, error) {
	bars := make([]model.Bar, 0, w.Ticks()*len(commodities))
	err := g.Stream(context.Background(), commodities, w, func(t Tick) error {
		bars = append(bars, t.Bars...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bars, nil
}

// Stream generates the window one tick at a time and hands each tick to fn
// before producing the next. An error from fn or ctx stops the stream.
// Commodity names must be unique.
func (g *Generator) Stream(ctx context.Context, commodities []refdata.Commodity, w model.TimeWindow, fn func(Tick) error) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if err := refdata.CheckUnique(commodities); err != nil {
		return err
	}
	for _, c := range commodities {
		if c.BasePrice <= 0 || math.IsNaN(c.BasePrice) || math.IsInf(c.BasePrice, 0) {
			return fmt.Errorf("%w: %s base price %v", model.ErrInvalidBar, c.Name, c.BasePrice)
		}
	}

	step := w.Interval()
	for t := w.Start; !t.After(w.End); t = t.Add(step) {
		if err := ctx.Err(); err != nil {
			return err
		}

		tick := Tick{Time: t, Bars: make([]model.Bar, len(commodities))}
		g.mu.Lock()
		for i, c := range commodities {
			tick.Bars[i] = g.bar(c, t)
		}
		g.mu.Unlock()

		if err := fn(tick); err != nil {
			return err
		}
	}
	return nil
}

// bar draws one bar. Caller holds g.mu.
func (g *Generator) bar(c refdata.Commodity, t time.Time) model.Bar {
	lt := t.In(g.loc)
	month := float64(lt.Month() - 1) // 0-based
	hour := float64(lt.Hour())

	seasonal := math.Sin(2*math.Pi*month/12) * seasonalAmplitude
	intraday := math.Sin(2*math.Pi*hour/24) * intradayAmplitude
	adjusted := c.BasePrice * (1 + seasonal + intraday)

	open := adjusted * (1 + g.uniform(-openJitter, openJitter))
	high := open * (1 + g.uniform(0, volatilityPct))
	low := open * (1 - g.uniform(0, volatilityPct))
	close := low + (high-low)*g.rng.Float64()

	b := model.Bar{
		Commodity: c.Name,
		Timestamp: t.UnixMilli(),
		Open:      round(open),
		High:      round(high),
		Low:       round(low),
		Close:     round(close),
		Volume:    int64(math.Floor(g.uniform(minVolume, maxVolume))),
		Trades:    int64(math.Floor(g.uniform(minTrades, maxTrades))),
	}
	clampBody(&b)
	return b
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*g.rng.Float64()
}

func round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(priceDecimals).InexactFloat64()
}

// clampBody widens the wicks so the body stays inside them after rounding.
func clampBody(b *model.Bar) {
	b.High = max(b.High, b.Open, b.Close)
	b.Low = min(b.Low, b.Open, b.Close)
}
