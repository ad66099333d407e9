package model

import "slices"

// Moving-average periods emitted for every bar.
const (
	MA5Period  = 5
	MA10Period = 10
	MA20Period = 20
)

// MACD parameters.
const (
	EMAFastPeriod = 12
	EMASlowPeriod = 26
	DEAAlpha      = 0.2
)

// IndicatorFields holds the indicator values attached to one bar.
type IndicatorFields struct {
	MA5   float64 `json:"ma5"`
	MA10  float64 `json:"ma10"`
	MA20  float64 `json:"ma20"`
	EMA12 float64 `json:"ema12"`
	EMA26 float64 `json:"ema26"`
	DIF   float64 `json:"dif"`
	DEA   float64 `json:"dea"`
	MACD  float64 `json:"macd"`

	// Withheld lists the MA periods left unset by strict warm-up mode.
	Withheld []int `json:"withheld,omitempty"`
}

// IsWithheld reports whether the moving average for period was withheld.
func (f *IndicatorFields) IsWithheld(period int) bool {
	return slices.Contains(f.Withheld, period)
}

// MA returns the moving average for one of the emitted periods.
func (f *IndicatorFields) MA(period int) (float64, bool) {
	switch period {
	case MA5Period:
		return f.MA5, !f.IsWithheld(period)
	case MA10Period:
		return f.MA10, !f.IsWithheld(period)
	case MA20Period:
		return f.MA20, !f.IsWithheld(period)
	}
	return 0, false
}
