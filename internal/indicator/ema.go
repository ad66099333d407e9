package indicator

import "strconv"

// EMA calculates an exponential moving average.
// O(1) per update, seeded with the first close (ema_1 = close_1).
type EMA struct {
	period     int
	multiplier float64
	current    float64
	count      int
}

// NewEMA creates a new EMA indicator with the given period.
func NewEMA(period int) *EMA {
	if period < 1 {
		period = 1
	}
	return &EMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

// NewSmoother creates an EMA that uses alpha directly as its multiplier.
// Used for the DEA line, whose smoothing constant is not period-derived.
func NewSmoother(alpha float64) *EMA {
	return &EMA{period: 1, multiplier: alpha}
}

func (e *EMA) Name() string { return "EMA_" + strconv.Itoa(e.period) }

func (e *EMA) Update(close float64) {
	e.current = e.Peek(close)
	e.count++
}

func (e *EMA) Value() float64 { return e.current }
func (e *EMA) Ready() bool    { return e.count >= e.period }

// Peek computes what Value() would be with an additional close without mutating state.
func (e *EMA) Peek(close float64) float64 {
	if e.count == 0 {
		return close
	}
	return e.current + (close-e.current)*e.multiplier
}

// Reset clears the EMA state for reuse.
func (e *EMA) Reset() {
	e.current = 0
	e.count = 0
}
