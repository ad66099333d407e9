package indicator

import (
	"fmt"
	"math"

	"agrimarket/internal/model"
)

// Option configures a State or Engine.
type Option func(*options)

type options struct {
	strict bool
}

// WithStrictWarmup withholds moving averages until a full window of closes
// exists, instead of averaging over the closes seen so far.
func WithStrictWarmup(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// State is the rolling indicator state for one commodity within one series.
type State struct {
	ma     []*SMA
	macd   *MACD
	all    []Indicator
	strict bool
	bars   int
}

// NewState creates empty indicator state.
func NewState(opts ...Option) *State {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	s := &State{
		ma: []*SMA{
			NewSMA(model.MA5Period),
			NewSMA(model.MA10Period),
			NewSMA(model.MA20Period),
		},
		macd:   NewMACD(model.EMAFastPeriod, model.EMASlowPeriod, model.DEAAlpha),
		strict: o.strict,
	}
	for _, ma := range s.ma {
		s.all = append(s.all, ma)
	}
	s.all = append(s.all, s.macd)
	return s
}

// Advance feeds the next bar and returns the indicator fields for it.
// A non-finite close leaves the state untouched and returns ErrInvalidBar.
func (s *State) Advance(bar model.Bar) (model.IndicatorFields, error) {
	if math.IsNaN(bar.Close) || math.IsInf(bar.Close, 0) {
		return model.IndicatorFields{}, fmt.Errorf("%w: %s close %v at %d",
			model.ErrInvalidBar, bar.Commodity, bar.Close, bar.Timestamp)
	}

	for _, ind := range s.all {
		ind.Update(bar.Close)
	}
	s.bars++

	f := model.IndicatorFields{
		EMA12: s.macd.Fast(),
		EMA26: s.macd.Slow(),
		DIF:   s.macd.DIF(),
		DEA:   s.macd.DEA(),
		MACD:  s.macd.Histogram(),
	}
	for _, ma := range s.ma {
		v := ma.Value()
		if s.strict && !ma.Ready() {
			v = 0
			f.Withheld = append(f.Withheld, ma.Period())
		}
		switch ma.Period() {
		case model.MA5Period:
			f.MA5 = v
		case model.MA10Period:
			f.MA10 = v
		case model.MA20Period:
			f.MA20 = v
		}
	}
	return f, nil
}

// Bars returns how many bars have been accepted.
func (s *State) Bars() int { return s.bars }

// Reset clears the state for reuse.
func (s *State) Reset() {
	for _, ind := range s.all {
		ind.Reset()
	}
	s.bars = 0
}

// Engine keeps one State per commodity for a single series computation.
// Designed for single-goroutine usage; never share an Engine across series.
type Engine struct {
	opts   []Option
	states map[string]*State
}

// NewEngine creates an engine; opts apply to every per-commodity State.
func NewEngine(opts ...Option) *Engine {
	return &Engine{
		opts:   opts,
		states: make(map[string]*State, 8),
	}
}

// Process advances the state of bar.Commodity, creating it on first sight.
func (e *Engine) Process(bar model.Bar) (model.IndicatorFields, error) {
	st, ok := e.states[bar.Commodity]
	if !ok {
		st = NewState(e.opts...)
		e.states[bar.Commodity] = st
	}
	return st.Advance(bar)
}

// State returns the state for a commodity, or nil if none has been seen.
func (e *Engine) State(commodity string) *State {
	return e.states[commodity]
}

// Reset drops every per-commodity state.
func (e *Engine) Reset() {
	clear(e.states)
}
