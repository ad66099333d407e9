package market

import (
	"fmt"
	"strings"
	"time"

	"agrimarket/internal/refdata"

	"github.com/shopspring/decimal"
)

// Highlight names the product with the largest month-over-month move.
type Highlight struct {
	Name         string          `json:"name"`
	Change       decimal.Decimal `json:"change"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Unit         string          `json:"unit"`
}

// TrendAnalysis summarizes a category's quotes.
type TrendAnalysis struct {
	Category         refdata.Category `json:"category"`
	TotalProducts    int              `json:"total_products"`
	UpCount          int              `json:"up_count"`
	StableCount      int              `json:"stable_count"`
	DownCount        int              `json:"down_count"`
	MainTrend        Trend            `json:"main_trend"`
	AvgMonthChange   decimal.Decimal  `json:"avg_month_change"`
	AvgYearChange    decimal.Decimal  `json:"avg_year_change"`
	MaxIncrease      *Highlight       `json:"max_increase"`
	MaxDecrease      *Highlight       `json:"max_decrease"`
	Season           string           `json:"season"`
	SeasonalProducts []string         `json:"seasonal_products"`
	SeasonalAnalysis string           `json:"seasonal_analysis"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Analyze derives the trend analysis of a quote set as of now.
func Analyze(set *QuoteSet, now time.Time) *TrendAnalysis {
	a := &TrendAnalysis{
		Category:      set.Category,
		TotalProducts: len(set.Quotes),
		MainTrend:     TrendStable,
		UpdatedAt:     now,
	}

	var sumMoM, sumYoY decimal.Decimal
	for i := range set.Quotes {
		q := &set.Quotes[i]
		switch q.Trend {
		case TrendUp:
			a.UpCount++
		case TrendStable:
			a.StableCount++
		case TrendDown:
			a.DownCount++
		}
		sumMoM = sumMoM.Add(q.MonthOverMonth)
		sumYoY = sumYoY.Add(q.YearOverYear)

		if a.MaxIncrease == nil || q.MonthOverMonth.GreaterThan(a.MaxIncrease.Change) {
			a.MaxIncrease = highlight(q)
		}
		if a.MaxDecrease == nil || q.MonthOverMonth.LessThan(a.MaxDecrease.Change) {
			a.MaxDecrease = highlight(q)
		}
	}
	if n := len(set.Quotes); n > 0 {
		count := decimal.NewFromInt(int64(n))
		a.AvgMonthChange = sumMoM.Div(count).Round(1)
		a.AvgYearChange = sumYoY.Div(count).Round(1)
	}
	a.MainTrend = mainTrend(a.UpCount, a.StableCount, a.DownCount)

	season := refdata.SeasonOf(now.Month())
	a.Season = season.DisplayName()
	a.SeasonalProducts = refdata.SeasonalProducts(set.Category, season)
	a.SeasonalAnalysis = seasonalText(set.Category, season, a.SeasonalProducts)
	return a
}

// mainTrend picks the dominant direction; ties resolve to stable.
func mainTrend(up, stable, down int) Trend {
	if up > down {
		if up > stable {
			return TrendUp
		}
		return TrendStable
	}
	if down > stable {
		return TrendDown
	}
	return TrendStable
}

func highlight(q *Quote) *Highlight {
	return &Highlight{Name: q.Name, Change: q.MonthOverMonth, CurrentPrice: q.CurrentPrice, Unit: q.Unit}
}

func seasonalText(cat refdata.Category, s refdata.Season, products []string) string {
	name := s.DisplayName()
	if len(products) == 0 {
		return fmt.Sprintf("当前季节(%s)市场供应正常，价格随供需变化。", name)
	}
	list := strings.Join(products, "、")
	switch cat {
	case refdata.Vegetables:
		return fmt.Sprintf("当前季节(%s)适合种植和收获的蔬菜有%s等，价格相对较低。非季节性蔬菜价格可能偏高。", name, list)
	case refdata.Fruits:
		return fmt.Sprintf("当前季节(%s)盛产的水果有%s等，新鲜度高且价格相对合理。", name, list)
	}
	return fmt.Sprintf("当前季节(%s)市场供应充足，价格总体稳定。", name)
}
