package market

import (
	"math/rand"
	"slices"
	"sync"
	"time"

	"agrimarket/internal/refdata"

	"github.com/shopspring/decimal"
)

// Trend is the short-term direction of a product's price.
type Trend string

const (
	TrendUp     Trend = "上涨"
	TrendStable Trend = "平稳"
	TrendDown   Trend = "下跌"
)

const (
	trailDays       = 7
	trailVolatility = 0.03
	trailDrift      = 0.01
	trailFloor      = 0.1
	quoteSources    = 3
)

// PricePoint is one day of a product's recent price trail.
type PricePoint struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// SourcePrice is a product's price at one wholesale market.
type SourcePrice struct {
	Market string          `json:"market"`
	Price  decimal.Decimal `json:"price"`
}

// Quote is a price snapshot for one product.
type Quote struct {
	Name           string          `json:"name"`
	Unit           string          `json:"unit"`
	PriceRange     [2]float64      `json:"price_range"`
	Trend          Trend           `json:"trend"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	LastMonthPrice decimal.Decimal `json:"last_month_price"`
	LastYearPrice  decimal.Decimal `json:"last_year_price"`
	MonthOverMonth decimal.Decimal `json:"month_over_month_change"`
	YearOverYear   decimal.Decimal `json:"year_over_year_change"`
	PredictedPrice decimal.Decimal `json:"predicted_price"`
	PriceTrend     []PricePoint    `json:"price_trend"`
	Sources        []SourcePrice   `json:"sources"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// QuoteSet holds the quotes of one category.
type QuoteSet struct {
	Category     refdata.Category `json:"category"`
	CategoryName string           `json:"category_name"`
	Quotes       []Quote          `json:"quotes"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// quoter synthesizes quotes from the reference price ranges.
type quoter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newQuoter(rng *rand.Rand) *quoter {
	return &quoter{rng: rng}
}

func (q *quoter) quoteSet(cat refdata.Category, products []refdata.Product, now time.Time) *QuoteSet {
	q.mu.Lock()
	defer q.mu.Unlock()

	set := &QuoteSet{
		Category:     cat,
		CategoryName: categoryName(cat),
		Quotes:       make([]Quote, 0, len(products)),
		UpdatedAt:    now,
	}
	for _, p := range products {
		set.Quotes = append(set.Quotes, q.quote(p, now))
	}
	return set
}

func (q *quoter) quote(p refdata.Product, now time.Time) Quote {
	trend := q.trend()
	current := decimal.NewFromFloat(p.Min + q.rng.Float64()*(p.Max-p.Min)).Round(2)

	lastMonth := current.Mul(decimal.NewFromFloat(monthFactor(trend))).Round(2)
	lastYear := current.Mul(decimal.NewFromFloat(0.85 + q.rng.Float64()*0.3)).Round(2)
	predicted := current.Mul(decimal.NewFromFloat(1 + q.rng.Float64()*0.2 - 0.1)).Round(2)

	return Quote{
		Name:           p.Name,
		Unit:           p.Unit,
		PriceRange:     [2]float64{p.Min, p.Max},
		Trend:          trend,
		CurrentPrice:   current,
		LastMonthPrice: lastMonth,
		LastYearPrice:  lastYear,
		MonthOverMonth: percentChange(current, lastMonth),
		YearOverYear:   percentChange(current, lastYear),
		PredictedPrice: predicted,
		PriceTrend:     q.trail(current, trend, now),
		Sources:        q.sources(current),
		UpdatedAt:      now,
	}
}

// trend draws up/stable/down with weights 0.3/0.4/0.3.
func (q *quoter) trend() Trend {
	r := q.rng.Float64()
	switch {
	case r < 0.3:
		return TrendUp
	case r < 0.7:
		return TrendStable
	default:
		return TrendDown
	}
}

// trail walks the price backwards from today for trailDays days, then
// appends today's price, oldest first.
func (q *quoter) trail(current decimal.Decimal, trend Trend, now time.Time) []PricePoint {
	drift := 0.0
	switch trend {
	case TrendUp:
		drift = trailDrift
	case TrendDown:
		drift = -trailDrift
	}

	out := make([]PricePoint, 0, trailDays+1)
	price := current.InexactFloat64()
	for i := 0; i < trailDays; i++ {
		change := price * (drift + trailVolatility*(q.rng.Float64()*2-1))
		price = max(price-change, trailFloor)
		out = append(out, PricePoint{
			Date:  now.AddDate(0, 0, -(trailDays - i)).Format(time.DateOnly),
			Price: decimal.NewFromFloat(price).Round(2),
		})
	}
	return append(out, PricePoint{Date: now.Format(time.DateOnly), Price: current})
}

// sources prices the product at distinct markets around the current price.
func (q *quoter) sources(current decimal.Decimal) []SourcePrice {
	markets := slices.Clone(refdata.Markets)
	out := make([]SourcePrice, 0, quoteSources)
	for i := 0; i < quoteSources && len(markets) > 0; i++ {
		idx := q.rng.Intn(len(markets))
		out = append(out, SourcePrice{
			Market: markets[idx],
			Price:  current.Mul(decimal.NewFromFloat(0.9 + q.rng.Float64()*0.2)).Round(2),
		})
		markets = slices.Delete(markets, idx, idx+1)
	}
	return out
}

// monthFactor maps a trend to last month's price relative to today.
func monthFactor(t Trend) float64 {
	switch t {
	case TrendUp:
		return 0.95
	case TrendDown:
		return 1.05
	}
	return 1
}

// percentChange returns (cur-prev)/prev*100 to one decimal place.
func percentChange(cur, prev decimal.Decimal) decimal.Decimal {
	if prev.IsZero() {
		return decimal.Zero
	}
	return cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(1)
}

func categoryName(cat refdata.Category) string {
	for _, c := range refdata.Categories {
		if c.ID == cat {
			return c.Name
		}
	}
	return string(cat)
}
