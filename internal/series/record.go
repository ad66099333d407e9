package series

import (
	"encoding/json"
	"time"

	"agrimarket/internal/model"
)

// CommodityPoint is one commodity's bar and indicators at one timestamp.
type CommodityPoint struct {
	Bar        model.Bar             `json:"bar"`
	Indicators model.IndicatorFields `json:"indicators"`
}

// Record is every commodity's point at one timestamp.
type Record struct {
	Timestamp   int64
	Time        time.Time
	Volume      int64 // sum over commodities
	Trades      int64 // sum over commodities
	Commodities []string
	Values      map[string]CommodityPoint
}

// Point returns the point for a commodity.
func (r *Record) Point(commodity string) (CommodityPoint, bool) {
	p, ok := r.Values[commodity]
	return p, ok
}

// MarshalJSON flattens the record into commodity-prefixed fields:
// <c>_open … <c>_MACD. Withheld moving averages encode as null.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 4+len(r.Commodities)*15)
	out["timestamp"] = r.Timestamp
	out["time"] = r.Time.Format(time.RFC3339)
	out["volume"] = r.Volume
	out["trades"] = r.Trades

	for _, c := range r.Commodities {
		p, ok := r.Values[c]
		if !ok {
			continue
		}
		f := &p.Indicators
		out[c+"_open"] = p.Bar.Open
		out[c+"_high"] = p.Bar.High
		out[c+"_low"] = p.Bar.Low
		out[c+"_close"] = p.Bar.Close
		out[c+"_volume"] = p.Bar.Volume
		out[c+"_trades"] = p.Bar.Trades
		out[c+"_MA5"] = maOrNil(f, model.MA5Period)
		out[c+"_MA10"] = maOrNil(f, model.MA10Period)
		out[c+"_MA20"] = maOrNil(f, model.MA20Period)
		out[c+"_EMA12"] = f.EMA12
		out[c+"_EMA26"] = f.EMA26
		out[c+"_DIF"] = f.DIF
		out[c+"_DEA"] = f.DEA
		out[c+"_MACD"] = f.MACD
	}
	return json.Marshal(out)
}

func maOrNil(f *model.IndicatorFields, period int) any {
	v, ok := f.MA(period)
	if !ok {
		return nil
	}
	return v
}

// Series is an ordered sequence of records, one per timestamp.
type Series struct {
	Range       model.TimeRange  `json:"range,omitempty"`
	Window      model.TimeWindow `json:"window"`
	Commodities []string         `json:"commodities"`
	Records     []Record         `json:"records"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Len returns the record count.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Empty returns a series with no records for the given commodities.
func Empty(commodities []string, w model.TimeWindow, now time.Time) *Series {
	return &Series{
		Window:      w,
		Commodities: commodities,
		Records:     []Record{},
		GeneratedAt: now,
	}
}
