package series

import (
	"fmt"
	"math"

	"agrimarket/internal/model"
)

// Stats summarizes one commodity over a series.
type Stats struct {
	Commodity          string  `json:"commodity"`
	Records            int     `json:"records"`
	FirstClose         float64 `json:"first_close"`
	LastClose          float64 `json:"last_close"`
	High               float64 `json:"high"`
	Low                float64 `json:"low"`
	PriceChangePercent float64 `json:"price_change_percent"`
	TotalVolume        int64   `json:"total_volume"`
	AverageVolume      float64 `json:"average_volume"`
}

// Summarize computes price change and volume statistics for commodity.
// An empty series (or one without the commodity) returns zeroed Stats and
// ErrEmptySeries; the Stats are still safe to render.
func Summarize(s *Series, commodity string) (Stats, error) {
	st := Stats{Commodity: commodity}

	recs := s.recordsOrNil()
	first := true
	for i := range recs {
		p, ok := recs[i].Values[commodity]
		if !ok {
			continue
		}
		if first {
			st.FirstClose = p.Bar.Close
			st.High = p.Bar.High
			st.Low = p.Bar.Low
			first = false
		}
		st.LastClose = p.Bar.Close
		st.High = math.Max(st.High, p.Bar.High)
		st.Low = math.Min(st.Low, p.Bar.Low)
		st.TotalVolume += p.Bar.Volume
		st.Records++
	}

	if st.Records == 0 {
		return Stats{Commodity: commodity}, fmt.Errorf("%w: %s", model.ErrEmptySeries, commodity)
	}

	if st.FirstClose != 0 {
		st.PriceChangePercent = (st.LastClose - st.FirstClose) / st.FirstClose * 100
	}
	st.AverageVolume = float64(st.TotalVolume) / float64(st.Records)
	return st, nil
}

// SummarizeAll summarizes every commodity of the series, in series order.
// Empty series yield zeroed Stats per commodity.
func SummarizeAll(s *Series) []Stats {
	if s == nil {
		return nil
	}
	out := make([]Stats, 0, len(s.Commodities))
	for _, c := range s.Commodities {
		st, _ := Summarize(s, c)
		out = append(out, st)
	}
	return out
}

func (s *Series) recordsOrNil() []Record {
	if s == nil {
		return nil
	}
	return s.Records
}
