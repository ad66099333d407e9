package indicator

import "strconv"

// SMA calculates a simple moving average over a rolling window.
// Uses a preallocated circular buffer for a zero-allocation hot path.
//
// While warming up (fewer than period closes), Value averages over the closes
// seen so far. Ready reports when the window is full.
type SMA struct {
	period int
	buf    []float64 // preallocated circular buffer
	idx    int       // current write position
	count  int       // total values received
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) *SMA {
	if period < 1 {
		period = 1
	}
	return &SMA{
		period: period,
		buf:    make([]float64, period),
	}
}

func (s *SMA) Name() string { return "MA_" + strconv.Itoa(s.period) }

// Period returns the window length.
func (s *SMA) Period() int { return s.period }

func (s *SMA) Update(close float64) {
	s.buf[s.idx] = close
	s.idx = (s.idx + 1) % s.period
	s.count++
}

// Value averages the closes in the live window, oldest first.
func (s *SMA) Value() float64 {
	n := s.window()
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += s.buf[s.slot(i)]
	}
	return sum / float64(n)
}

func (s *SMA) Ready() bool { return s.count >= s.period }

// Peek computes what Value() would be with an additional close without mutating state.
func (s *SMA) Peek(close float64) float64 {
	n := s.window()
	drop := 0
	if n == s.period {
		drop = 1 // oldest value leaves the window
	}
	sum := close
	for i := drop; i < n; i++ {
		sum += s.buf[s.slot(i)]
	}
	return sum / float64(n-drop+1)
}

// Reset clears the SMA state for reuse.
func (s *SMA) Reset() {
	s.idx = 0
	s.count = 0
	clear(s.buf)
}

func (s *SMA) window() int {
	return min(s.count, s.period)
}

// slot maps the i-th oldest close in the live window to its buffer index.
func (s *SMA) slot(i int) int {
	return (s.idx - s.window() + i + s.period) % s.period
}
