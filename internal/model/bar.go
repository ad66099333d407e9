package model

import (
	"encoding/json"
	"math"
	"time"
)

// Bar is one synthetic OHLCV record for a single commodity at one instant.
// Prices are yuan per kilogram, rounded to three decimals by the generator.
type Bar struct {
	Commodity string  `json:"commodity"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`
	Trades    int64   `json:"trades"`
}

// Time returns the bar timestamp as a time.Time.
func (b *Bar) Time() time.Time {
	return time.UnixMilli(b.Timestamp)
}

// Finite reports whether every price field is a finite number.
func (b *Bar) Finite() bool {
	for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// WellFormed reports whether the candle body lies inside the wick range.
func (b *Bar) WellFormed() bool {
	return b.Finite() &&
		b.Low <= b.High &&
		b.Low <= math.Min(b.Open, b.Close) &&
		b.High >= math.Max(b.Open, b.Close)
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *Bar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}
