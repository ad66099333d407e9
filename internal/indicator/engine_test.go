package indicator

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"agrimarket/internal/model"
)

func makeBar(commodity string, i int, close float64) model.Bar {
	return model.Bar{
		Commodity: commodity,
		Timestamp: int64(i) * 300_000,
		Open:      close,
		High:      close + 0.01,
		Low:       close - 0.01,
		Close:     close,
		Volume:    1000,
	}
}

func TestState_ConstantSeries(t *testing.T) {
	st := NewState()

	var f model.IndicatorFields
	for i := 0; i < 30; i++ {
		var err error
		f, err = st.Advance(makeBar("rice", i, 10.0))
		if err != nil {
			t.Fatalf("bar %d: %v", i, err)
		}
	}

	assertClose(t, "MA5", f.MA5, 10, 1e-9)
	assertClose(t, "MA20", f.MA20, 10, 1e-9)
	assertClose(t, "EMA12", f.EMA12, 10, 1e-9)
	assertClose(t, "EMA26", f.EMA26, 10, 1e-9)
	assertClose(t, "MACD", f.MACD, 0, 1e-9)
	if st.Bars() != 30 {
		t.Errorf("expected 30 bars, got %d", st.Bars())
	}
}

func TestState_WarmupAveragesAvailable(t *testing.T) {
	st := NewState()
	closes := []float64{1, 2, 3}

	var f model.IndicatorFields
	for i, c := range closes {
		f, _ = st.Advance(makeBar("rice", i, c))
	}
	// Only 3 closes: every MA averages over what exists.
	assertClose(t, "MA5", f.MA5, 2, 1e-12)
	assertClose(t, "MA10", f.MA10, 2, 1e-12)
	assertClose(t, "MA20", f.MA20, 2, 1e-12)
	if len(f.Withheld) != 0 {
		t.Errorf("default mode should withhold nothing, got %v", f.Withheld)
	}
}

func TestState_StrictWarmupWithholds(t *testing.T) {
	st := NewState(WithStrictWarmup(true))

	var f model.IndicatorFields
	for i := 0; i < 5; i++ {
		f, _ = st.Advance(makeBar("rice", i, float64(i+1)))
	}
	if _, ok := f.MA(model.MA5Period); !ok {
		t.Error("MA5 should be available after 5 bars")
	}
	assertClose(t, "MA5", f.MA5, 3, 1e-12)
	if !f.IsWithheld(model.MA10Period) || !f.IsWithheld(model.MA20Period) {
		t.Errorf("MA10/MA20 should be withheld, got %v", f.Withheld)
	}
	if f.MA20 != 0 {
		t.Errorf("withheld MA20 should be 0, got %v", f.MA20)
	}
}

func TestState_NonFiniteClose(t *testing.T) {
	st := NewState()
	_, _ = st.Advance(makeBar("rice", 0, 2.8))

	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := st.Advance(makeBar("rice", 1, bad))
		if !errors.Is(err, model.ErrInvalidBar) {
			t.Errorf("close %v: expected ErrInvalidBar, got %v", bad, err)
		}
	}
	if st.Bars() != 1 {
		t.Errorf("rejected bars must not advance state, got %d bars", st.Bars())
	}
}

// Re-running over the first k bars must reproduce the first k outputs of the
// full run exactly.
func TestEngine_NoLookahead(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	bars := make([]model.Bar, 120)
	for i := range bars {
		bars[i] = makeBar("wheat", i, 2.5+rng.Float64()*0.2)
	}

	full := NewEngine()
	want := make([]model.IndicatorFields, len(bars))
	for i, b := range bars {
		f, err := full.Process(b)
		if err != nil {
			t.Fatal(err)
		}
		want[i] = f
	}

	for _, k := range []int{1, 5, 19, 20, 26, 77, 120} {
		prefix := NewEngine()
		for i := 0; i < k; i++ {
			got, _ := prefix.Process(bars[i])
			if got.MA5 != want[i].MA5 || got.MA10 != want[i].MA10 || got.MA20 != want[i].MA20 ||
				got.EMA12 != want[i].EMA12 || got.EMA26 != want[i].EMA26 ||
				got.DIF != want[i].DIF || got.DEA != want[i].DEA || got.MACD != want[i].MACD {
				t.Fatalf("prefix %d, bar %d: %+v != %+v", k, i, got, want[i])
			}
		}
	}
}

func TestEngine_PerCommodityIsolation(t *testing.T) {
	e := NewEngine()
	for i := 0; i < 10; i++ {
		if _, err := e.Process(makeBar("rice", i, 2.8)); err != nil {
			t.Fatal(err)
		}
		if _, err := e.Process(makeBar("corn", i, 2.2)); err != nil {
			t.Fatal(err)
		}
	}

	f, _ := e.Process(makeBar("rice", 10, 2.8))
	assertClose(t, "rice MA10", f.MA10, 2.8, 1e-12)
	if e.State("rice").Bars() != 11 || e.State("corn").Bars() != 10 {
		t.Errorf("unexpected bar counts rice=%d corn=%d", e.State("rice").Bars(), e.State("corn").Bars())
	}

	e.Reset()
	if e.State("rice") != nil {
		t.Error("expected states cleared after Reset")
	}
}
