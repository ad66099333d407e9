package indicator

import "strconv"

// MACD tracks the fast/slow EMA pair, the DIF line, its DEA smoothing and the
// histogram. DEA is seeded with the first DIF.
type MACD struct {
	fast *EMA
	slow *EMA
	dea  *EMA
}

// NewMACD creates a MACD with the given EMA periods and DEA smoothing constant.
func NewMACD(fastPeriod, slowPeriod int, alpha float64) *MACD {
	return &MACD{
		fast: NewEMA(fastPeriod),
		slow: NewEMA(slowPeriod),
		dea:  NewSmoother(alpha),
	}
}

func (m *MACD) Update(close float64) {
	m.fast.Update(close)
	m.slow.Update(close)
	m.dea.Update(m.DIF())
}

func (m *MACD) Fast() float64 { return m.fast.Value() }
func (m *MACD) Slow() float64 { return m.slow.Value() }
func (m *MACD) DIF() float64  { return m.fast.Value() - m.slow.Value() }
func (m *MACD) DEA() float64  { return m.dea.Value() }

// Histogram returns 2 × (DIF − DEA).
func (m *MACD) Histogram() float64 { return (m.DIF() - m.DEA()) * 2 }

// Name, Value, Ready and Peek make MACD an Indicator whose value is the
// histogram.
func (m *MACD) Name() string   { return "MACD_" + strconv.Itoa(m.fast.period) + "_" + strconv.Itoa(m.slow.period) }
func (m *MACD) Value() float64 { return m.Histogram() }
func (m *MACD) Ready() bool    { return m.slow.Ready() }

// Peek returns the histogram close would produce, without mutating state.
func (m *MACD) Peek(close float64) float64 {
	dif := m.fast.Peek(close) - m.slow.Peek(close)
	return (dif - m.dea.Peek(dif)) * 2
}

func (m *MACD) Reset() {
	m.fast.Reset()
	m.slow.Reset()
	m.dea.Reset()
}
