// Package crop serves national crop production statistics per crop type
// and the trend analysis derived from them, through the shared TTL cache.
package crop

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"agrimarket/internal/cache"
	"agrimarket/internal/clock"
	"agrimarket/internal/refdata"

	"github.com/shopspring/decimal"
)

const (
	DefaultTTL        = 24 * time.Hour
	DefaultFetchDelay = 600 * time.Millisecond
)

// KeyProduction is the cache key category of production sets.
const KeyProduction = "crop-production"

// Option configures a Service.
type Option func(*Service)

func WithTTL(d time.Duration) Option {
	return func(s *Service) { s.ttl = d }
}

// WithFetchDelay sets the simulated upstream latency paid on every
// recompute. Zero disables it.
func WithFetchDelay(d time.Duration) Option {
	return func(s *Service) { s.delay = d }
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithRand sets the random source for the yearly variation.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) { s.rng = r }
}

// Measure is a quantity with its unit.
type Measure struct {
	Value int64  `json:"value"`
	Unit  string `json:"unit"`
}

// AnnualChange is the year-over-year change in percent.
type AnnualChange struct {
	Production decimal.Decimal `json:"production"`
	Area       decimal.Decimal `json:"area"`
}

// EconomicValue is the crop's price per tonne and total output value in
// hundred-million yuan.
type EconomicValue struct {
	PricePerTonne decimal.Decimal `json:"price_per_tonne"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// Production is one crop's current statistics.
type Production struct {
	Name         string                `json:"name"`
	Area         Measure               `json:"area"`
	Production   Measure               `json:"production"`
	Yield        Measure               `json:"yield"`
	Regions      []refdata.RegionShare `json:"regions"`
	AnnualChange AnnualChange          `json:"annual_change"`
	Suitability  refdata.Suitability   `json:"suitability"`
	Economic     EconomicValue         `json:"economic_value"`
}

// ProductionSet holds the crops of one type.
type ProductionSet struct {
	CropType  refdata.CropType `json:"crop_type"`
	Name      string           `json:"name"`
	Crops     []Production     `json:"crops"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Service is the crop statistics facade used by the gateway.
type Service struct {
	cache *cache.TTL
	clock clock.Clock
	ttl   time.Duration
	delay time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService creates a crop service over c.
func NewService(c *cache.TTL, opts ...Option) *Service {
	s := &Service{
		cache: c,
		clock: clock.Real{},
		ttl:   DefaultTTL,
		delay: DefaultFetchDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// Production returns the statistics of a crop type. Unknown types resolve
// to grains and share its cache entry.
func (s *Service) Production(ctx context.Context, cropType string, force bool) (*ProductionSet, error) {
	t := refdata.ParseCropType(cropType)
	return cache.Fetch(ctx, s.cache, cache.Key(KeyProduction, string(t)), s.ttl, force,
		func(ctx context.Context) (*ProductionSet, error) {
			if err := s.wait(ctx); err != nil {
				return nil, err
			}
			return s.generate(t), nil
		})
}

// TrendAnalysis analyzes the current statistics of a crop type.
func (s *Service) TrendAnalysis(ctx context.Context, cropType string, force bool) (*TrendAnalysis, error) {
	set, err := s.Production(ctx, cropType, force)
	if err != nil {
		return nil, err
	}
	return Analyze(set, s.clock.Now()), nil
}

// Types lists the crop types.
func (s *Service) Types() []refdata.CropTypeInfo {
	return refdata.CropTypes
}

// generate applies this year's random variation to the baseline figures:
// production within ±5%, area within ±3%, yield derived from both.
func (s *Service) generate(t refdata.CropType) *ProductionSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := refdata.Crops(t)
	set := &ProductionSet{
		CropType:  t,
		Name:      cropTypeName(t),
		Crops:     make([]Production, 0, len(base)),
		UpdatedAt: s.clock.Now(),
	}
	for _, c := range base {
		variation := 1 + s.rng.Float64()*0.1 - 0.05
		production := round(c.Production * variation)
		area := max(round(c.Area*(1+s.rng.Float64()*0.06-0.03)), 1)
		areaChange := (s.rng.Float64()*0.08 - 0.02) * 100

		lo, hi := c.PriceRange()
		price := decimal.NewFromFloat(lo + s.rng.Float64()*(hi-lo)).Round(0)
		// thousand tonnes × yuan/tonne → hundred-million yuan
		total := decimal.NewFromInt(production).Mul(price).Div(decimal.NewFromInt(100_000)).Round(1)

		set.Crops = append(set.Crops, Production{
			Name:       c.Name,
			Area:       Measure{Value: area, Unit: refdata.UnitArea},
			Production: Measure{Value: production, Unit: refdata.UnitProduction},
			Yield:      Measure{Value: round(float64(production) / float64(area) * 1000), Unit: refdata.UnitYield},
			Regions:    c.Regions,
			AnnualChange: AnnualChange{
				Production: decimal.NewFromFloat((variation - 1) * 100).Round(1),
				Area:       decimal.NewFromFloat(areaChange).Round(1),
			},
			Suitability: refdata.SuitabilityOf(c.Name),
			Economic:    EconomicValue{PricePerTonne: price, TotalValue: total},
		})
	}
	return set
}

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

func round(v float64) int64 {
	return decimal.NewFromFloat(v).Round(0).IntPart()
}

func cropTypeName(t refdata.CropType) string {
	for _, c := range refdata.CropTypes {
		if c.ID == t {
			return c.Name
		}
	}
	return string(t)
}
