package refdata

import (
	"errors"
	"testing"
	"time"
)

func TestDefault_ProductsValid(t *testing.T) {
	tbl := Default()
	for _, c := range Categories {
		ps := tbl.Products(c.ID)
		if len(ps) == 0 {
			t.Errorf("category %s has no products", c.ID)
		}
		for _, p := range ps {
			if err := p.Validate(); err != nil {
				t.Errorf("category %s: %v", c.ID, err)
			}
		}
	}
}

func TestProducts_UnknownFallsBackToVegetables(t *testing.T) {
	tbl := Default()
	got := tbl.Products("spices")
	want := tbl.Products(Vegetables)
	if len(got) != len(want) || got[0].Name != want[0].Name {
		t.Fatalf("expected vegetables fallback, got %v", got)
	}
	if ParseCategory("spices") != Vegetables || ParseCategory("meat") != Meat {
		t.Error("ParseCategory fallback mismatch")
	}
}

func TestNewTable(t *testing.T) {
	tbl, err := NewTable([]Commodity{{Name: "大豆", BasePrice: 5.1}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c, ok := tbl.Commodity("大豆"); !ok || c.BasePrice != 5.1 {
		t.Errorf("unexpected commodity %+v", c)
	}
	if len(tbl.Products(Grains)) == 0 {
		t.Error("products should fall back to built-in rows")
	}

	if _, err := NewTable([]Commodity{{Name: "x", BasePrice: 0}}, nil); err == nil {
		t.Error("expected error for zero base price")
	}
	dup := []Commodity{{Name: "水稻", BasePrice: 2.8}, {Name: "水稻", BasePrice: 3.0}}
	if _, err := NewTable(dup, nil); !errors.Is(err, ErrDuplicateCommodity) {
		t.Errorf("expected ErrDuplicateCommodity, got %v", err)
	}
	bad := map[Category][]Product{Grains: {{Name: "x", Min: 3, Max: 1}}}
	if _, err := NewTable(nil, bad); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestTable_Select(t *testing.T) {
	tbl := Default()
	if same, _ := tbl.Select(nil); same != tbl {
		t.Error("empty selection should return the table itself")
	}

	sel, err := tbl.Select([]string{"玉米", "水稻"})
	if err != nil {
		t.Fatal(err)
	}
	cs := sel.Commodities()
	if len(cs) != 2 || cs[0].Name != "玉米" || cs[1].Name != "水稻" {
		t.Errorf("unexpected selection %+v", cs)
	}
	if len(sel.Products(Fruits)) != len(tbl.Products(Fruits)) {
		t.Error("selection should keep the product tables")
	}

	if _, err := tbl.Select([]string{"咖啡"}); err == nil {
		t.Error("expected error for unknown commodity")
	}
	if _, err := tbl.Select([]string{"水稻", "水稻"}); !errors.Is(err, ErrDuplicateCommodity) {
		t.Errorf("expected ErrDuplicateCommodity, got %v", err)
	}
}

func TestResolveLocation(t *testing.T) {
	tests := []struct {
		province, city         string
		wantProvince, wantCity string
	}{
		{"", "", "北京", "北京"},
		{"广东", "", "广东", "广州"},
		{"广东", "深圳", "广东", "深圳"},
		{"火星", "", "火星", "北京"},
	}
	for _, tt := range tests {
		p, c := ResolveLocation(tt.province, tt.city)
		if p != tt.wantProvince || c != tt.wantCity {
			t.Errorf("ResolveLocation(%q,%q) = %q,%q", tt.province, tt.city, p, c)
		}
	}
}

func TestRegionSets(t *testing.T) {
	if !IsMunicipality("重庆") || IsMunicipality("四川") {
		t.Error("municipality set mismatch")
	}
	if !IsSpecialRegion("澳门") || IsSpecialRegion("广东") {
		t.Error("special region set mismatch")
	}
	if !IsNorthern("黑龙江") || !IsSouthern("海南") || IsNorthern("海南") {
		t.Error("climate set mismatch")
	}
}

func TestSeasonOf(t *testing.T) {
	want := map[time.Month]Season{
		time.January: Winter, time.March: Spring, time.May: Spring,
		time.June: Summer, time.August: Summer, time.September: Autumn,
		time.November: Autumn, time.December: Winter,
	}
	for m, s := range want {
		if got := SeasonOf(m); got != s {
			t.Errorf("%s: got %s, want %s", m, got, s)
		}
	}
	if len(SeasonalProducts(Fruits, Summer)) != 4 {
		t.Error("expected 4 summer fruits")
	}
	if SeasonalProducts(Meat, Summer) != nil {
		t.Error("meat has no seasonal list")
	}
}
