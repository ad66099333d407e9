package crop

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"agrimarket/internal/cache"
	"agrimarket/internal/clock"
	"agrimarket/internal/refdata"

	"github.com/shopspring/decimal"
)

func newTestService(opts ...Option) (*Service, *clock.Manual) {
	clk := clock.NewManual(time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC))
	c := cache.New(cache.WithClock(clk))
	base := []Option{WithClock(clk), WithFetchDelay(0), WithRand(rand.New(rand.NewSource(3)))}
	return NewService(c, append(base, opts...)...), clk
}

func TestService_ProductionWithinVariation(t *testing.T) {
	svc, _ := newTestService()
	for _, ct := range refdata.CropTypes {
		set, err := svc.Production(context.Background(), string(ct.ID), false)
		if err != nil {
			t.Fatal(err)
		}
		base := refdata.Crops(ct.ID)
		if set.CropType != ct.ID || set.Name != ct.Name || len(set.Crops) != len(base) {
			t.Fatalf("%s: unexpected set header %s %s %d", ct.ID, set.CropType, set.Name, len(set.Crops))
		}
		for i, c := range set.Crops {
			b := base[i]
			if c.Name != b.Name {
				t.Errorf("crop %d: order changed, got %s want %s", i, c.Name, b.Name)
			}
			if p := float64(c.Production.Value); p < math.Floor(b.Production*0.95) || p > math.Ceil(b.Production*1.05) {
				t.Errorf("%s production %v outside ±5%% of %v", c.Name, p, b.Production)
			}
			if a := float64(c.Area.Value); a < math.Floor(b.Area*0.97) || a > math.Ceil(b.Area*1.03) {
				t.Errorf("%s area %v outside ±3%% of %v", c.Name, a, b.Area)
			}
			want := math.Round(float64(c.Production.Value) / float64(c.Area.Value) * 1000)
			if float64(c.Yield.Value) != want {
				t.Errorf("%s yield %d, want %v", c.Name, c.Yield.Value, want)
			}
			if c.AnnualChange.Production.Abs().GreaterThan(decimal.NewFromInt(5)) {
				t.Errorf("%s production change %s beyond 5%%", c.Name, c.AnnualChange.Production)
			}
			lo, hi := b.PriceRange()
			if p := c.Economic.PricePerTonne.InexactFloat64(); p < lo || p > hi {
				t.Errorf("%s price %v outside [%v, %v]", c.Name, p, lo, hi)
			}
			if c.Production.Unit != refdata.UnitProduction || c.Yield.Unit != refdata.UnitYield {
				t.Errorf("%s units %s %s", c.Name, c.Production.Unit, c.Yield.Unit)
			}
		}
	}
}

func TestService_ProductionCached(t *testing.T) {
	svc, clk := newTestService()
	ctx := context.Background()

	a, _ := svc.Production(ctx, "economic", false)
	b, _ := svc.Production(ctx, "economic", false)
	if a != b {
		t.Error("second call within TTL should hit the cache")
	}

	grains, _ := svc.Production(ctx, "grains", false)
	unknown, _ := svc.Production(ctx, "flowers", false)
	if unknown != grains {
		t.Error("unknown crop type should share the grains entry")
	}

	clk.Advance(DefaultTTL)
	if c, _ := svc.Production(ctx, "economic", false); c == a {
		t.Error("expected recompute after TTL")
	}
	if f, _ := svc.Production(ctx, "grains", true); f == grains {
		t.Error("force should recompute")
	}
}

func TestService_FetchDelayHonoursContext(t *testing.T) {
	svc, _ := newTestService(WithFetchDelay(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := svc.TrendAnalysis(ctx, "fruits", false); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func prod(name string, area, production, yield int64, prodChange, areaChange float64) Production {
	return Production{
		Name:       name,
		Area:       Measure{Value: area, Unit: refdata.UnitArea},
		Production: Measure{Value: production, Unit: refdata.UnitProduction},
		Yield:      Measure{Value: yield, Unit: refdata.UnitYield},
		AnnualChange: AnnualChange{
			Production: decimal.NewFromFloat(prodChange),
			Area:       decimal.NewFromFloat(areaChange),
		},
	}
}

func TestAnalyze_Highlights(t *testing.T) {
	now := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	set := &ProductionSet{
		CropType: refdata.CropGrains,
		Crops: []Production{
			prod("a", 300, 1000, 3000, 1.0, -1.0),
			prod("b", 100, 3000, 9000, 2.0, 0.5),
			prod("c", 300, 1000, 9000, 3.3, 1.1),
		},
	}
	a := Analyze(set, now)

	if a.Summary.TotalProduction.Value != 5000 || a.Summary.CropCount != 3 {
		t.Errorf("unexpected summary %+v", a.Summary)
	}
	if a.Summary.AvgYield.Value != 7000 {
		t.Errorf("avg yield %d, want 7000", a.Summary.AvgYield.Value)
	}
	if !a.Summary.AvgProductionChange.Equal(decimal.RequireFromString("2.1")) {
		t.Errorf("avg production change %s, want 2.1", a.Summary.AvgProductionChange)
	}
	if !a.Summary.AvgAreaChange.Equal(decimal.RequireFromString("0.2")) {
		t.Errorf("avg area change %s, want 0.2", a.Summary.AvgAreaChange)
	}

	h := a.Highlights
	if h.LargestArea.Name != "a" || h.LargestArea.Share.String() != "42.9" {
		t.Errorf("largest area: first crop should win the tie, got %+v", h.LargestArea)
	}
	if h.HighestProduction.Name != "b" || h.HighestProduction.Share.String() != "60" {
		t.Errorf("highest production %+v", h.HighestProduction)
	}
	if h.HighestYield.Name != "b" || h.HighestYield.Share != nil {
		t.Errorf("highest yield %+v", h.HighestYield)
	}

	if a.Trends != (Trends{Production: "增长", Area: "扩大", Overall: "产量显著增长"}) {
		t.Errorf("unexpected trends %+v", a.Trends)
	}
	if a.Analysis != analysisTexts[refdata.CropGrains][0] {
		t.Errorf("grains above 2%% should get the strong-growth text, got %q", a.Analysis)
	}
	if !a.UpdatedAt.Equal(now) {
		t.Errorf("updated at %v", a.UpdatedAt)
	}
}

func TestAnalyze_TextThresholds(t *testing.T) {
	cases := []struct {
		ct      refdata.CropType
		change  float64
		text    int
		overall string
	}{
		{refdata.CropGrains, 2.0, 1, "产量显著增长"},
		{refdata.CropEconomic, 2.5, 1, "产量显著增长"},
		{refdata.CropVegetables, 3.1, 0, "产量显著增长"},
		{refdata.CropFruits, 0.5, 1, "产量稳中有升"},
		{refdata.CropFruits, 0, 2, "产量略有下降"},
		{refdata.CropEconomic, -1.2, 2, "产量略有下降"},
	}
	for _, tc := range cases {
		set := &ProductionSet{CropType: tc.ct, Crops: []Production{prod("x", 1, 1, 1, tc.change, 0)}}
		a := Analyze(set, time.Time{})
		if a.Analysis != analysisTexts[tc.ct][tc.text] {
			t.Errorf("%s %.1f: expected text %d", tc.ct, tc.change, tc.text)
		}
		if a.Trends.Overall != tc.overall {
			t.Errorf("%s %.1f: overall %q, want %q", tc.ct, tc.change, a.Trends.Overall, tc.overall)
		}
		if a.Trends.Area != "缩减" {
			t.Errorf("zero area change should read as shrinking, got %q", a.Trends.Area)
		}
	}
}

func TestAnalyze_Empty(t *testing.T) {
	a := Analyze(&ProductionSet{CropType: refdata.CropFruits}, time.Time{})
	if a.Highlights.LargestArea != nil || a.Summary.CropCount != 0 || a.Summary.AvgYield.Value != 0 {
		t.Errorf("empty set should produce zero summary, got %+v", a)
	}
}
