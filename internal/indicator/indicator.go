// Package indicator computes moving averages and MACD over a bar stream.
//
// All indicators implement the Indicator interface, receiving closes one at a
// time in chronological order. Values for bar k depend only on bars 1..k.
package indicator

// Indicator is the interface for the rolling indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "MA_20", "EMA_12").
	Name() string

	// Update feeds the next close and recalculates.
	Update(close float64)

	// Value returns the current value. Returns 0 before the first update.
	Value() float64

	// Ready returns true once a full window of data has been seen.
	Ready() bool

	// Peek computes what Value() would be if close were fed next,
	// WITHOUT mutating internal state.
	Peek(close float64) float64

	// Reset clears all state for reuse.
	Reset()
}
