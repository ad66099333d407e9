// Package refdata holds the read-only reference tables: commodity base
// prices, per-category product price ranges, regions and seasons.
package refdata

import (
	"errors"
	"fmt"
)

// Commodity is a series commodity and the base price its bars drift around.
type Commodity struct {
	Name      string  `json:"name" yaml:"name"`
	BasePrice float64 `json:"base_price" yaml:"base_price"` // yuan/kg
}

// DefaultSeriesCommodities are the commodities charted by default.
var DefaultSeriesCommodities = []Commodity{
	{Name: "水稻", BasePrice: 2.8},
	{Name: "小麦", BasePrice: 2.5},
	{Name: "玉米", BasePrice: 2.2},
}

// Category identifies a product group in the quote tables.
type Category string

const (
	Grains     Category = "grains"
	Vegetables Category = "vegetables"
	Fruits     Category = "fruits"
	Meat       Category = "meat"
	Eggs       Category = "eggs"
	Aquatic    Category = "aquatic"
)

// CategoryInfo pairs a category id with its display name.
type CategoryInfo struct {
	ID   Category `json:"id"`
	Name string   `json:"name"`
}

// Categories lists every category in display order.
var Categories = []CategoryInfo{
	{Grains, "粮食"},
	{Vegetables, "蔬菜"},
	{Fruits, "水果"},
	{Meat, "肉类"},
	{Eggs, "禽蛋"},
	{Aquatic, "水产品"},
}

// Product is a quoted product with its plausible wholesale price range.
type Product struct {
	Name string  `json:"name"`
	Unit string  `json:"unit"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// Validate checks the price range is positive and ordered.
func (p Product) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("product: empty name")
	}
	if p.Min <= 0 || p.Max < p.Min {
		return fmt.Errorf("product %s: bad range [%v, %v]", p.Name, p.Min, p.Max)
	}
	return nil
}

const unitYuanPerKg = "元/公斤"

func kg(name string, lo, hi float64) Product {
	return Product{Name: name, Unit: unitYuanPerKg, Min: lo, Max: hi}
}

var defaultProducts = map[Category][]Product{
	Vegetables: {
		kg("白菜", 1.2, 3.5), kg("土豆", 1.5, 4.2), kg("西红柿", 3.0, 8.5),
		kg("黄瓜", 2.8, 7.5), kg("茄子", 3.2, 7.8), kg("青椒", 3.5, 9.0),
		kg("胡萝卜", 1.8, 4.5), kg("大蒜", 5.0, 15.0), kg("生姜", 8.0, 25.0),
		kg("菠菜", 3.5, 10.0),
	},
	Fruits: {
		kg("苹果", 5.0, 15.0), kg("香蕉", 3.5, 8.0), kg("橙子", 4.0, 12.0),
		kg("梨", 4.5, 10.0), kg("葡萄", 8.0, 25.0), kg("西瓜", 2.0, 6.0),
		kg("桃子", 6.0, 18.0), kg("猕猴桃", 10.0, 30.0), kg("草莓", 15.0, 45.0),
		kg("柚子", 5.0, 12.0),
	},
	Grains: {
		kg("大米", 4.0, 10.0), kg("小麦", 2.4, 3.8), kg("玉米", 2.0, 3.5),
		kg("大豆", 4.5, 8.5), kg("高粱", 2.8, 4.5), kg("燕麦", 3.5, 7.0),
		kg("黑米", 8.0, 15.0), kg("糯米", 5.0, 10.0), kg("小米", 4.0, 8.0),
		kg("薏米", 6.0, 12.0),
	},
	Meat: {
		kg("猪肉", 18.0, 40.0), kg("牛肉", 50.0, 120.0), kg("羊肉", 55.0, 130.0),
		kg("鸡肉", 12.0, 30.0), kg("鸭肉", 15.0, 35.0), kg("猪肝", 15.0, 30.0),
		kg("排骨", 30.0, 60.0), kg("猪蹄", 20.0, 40.0), kg("牛腩", 45.0, 90.0),
		kg("羊排", 60.0, 140.0),
	},
	Eggs: {
		kg("鸡蛋", 8.0, 15.0), kg("鸭蛋", 10.0, 18.0), kg("鹅蛋", 25.0, 45.0),
		kg("鹌鹑蛋", 20.0, 40.0), kg("皮蛋", 15.0, 30.0), kg("咸蛋", 12.0, 25.0),
	},
	Aquatic: {
		kg("草鱼", 10.0, 25.0), kg("鲤鱼", 12.0, 28.0), kg("鲫鱼", 15.0, 30.0),
		kg("带鱼", 25.0, 50.0), kg("黄鱼", 30.0, 70.0), kg("虾", 40.0, 120.0),
		kg("蟹", 50.0, 200.0), kg("贝类", 15.0, 35.0), kg("海参", 200.0, 500.0),
		kg("墨鱼", 30.0, 60.0),
	},
}

// Markets are the wholesale markets quotes are attributed to.
var Markets = []string{"北京新发地", "上海江桥", "广州江南", "成都农产品", "武汉白沙洲", "沈阳八家子"}

// Table is an immutable snapshot of the reference tables.
type Table struct {
	commodities []Commodity
	products    map[Category][]Product
}

// Default returns the built-in tables.
func Default() *Table {
	return &Table{
		commodities: DefaultSeriesCommodities,
		products:    defaultProducts,
	}
}

// ErrDuplicateCommodity is returned when a commodity name appears twice in
// one series.
var ErrDuplicateCommodity = errors.New("duplicate commodity")

// CheckUnique rejects commodity lists that name the same commodity twice.
func CheckUnique(commodities []Commodity) error {
	seen := make(map[string]struct{}, len(commodities))
	for _, c := range commodities {
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateCommodity, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return nil
}

// NewTable builds a table from loaded rows. Empty inputs fall back to the
// built-in rows for that part.
func NewTable(commodities []Commodity, products map[Category][]Product) (*Table, error) {
	if err := CheckUnique(commodities); err != nil {
		return nil, err
	}
	for _, c := range commodities {
		if c.Name == "" || c.BasePrice <= 0 {
			return nil, fmt.Errorf("commodity %q: base price %v", c.Name, c.BasePrice)
		}
	}
	for cat, ps := range products {
		for _, p := range ps {
			if err := p.Validate(); err != nil {
				return nil, fmt.Errorf("category %s: %w", cat, err)
			}
		}
	}

	t := Default()
	if len(commodities) > 0 {
		t.commodities = commodities
	}
	if len(products) > 0 {
		t.products = products
	}
	return t, nil
}

// Select returns a table whose series commodities are the named ones, in
// the given order. Products are shared. An empty list returns t.
func (t *Table) Select(names []string) (*Table, error) {
	if len(names) == 0 {
		return t, nil
	}
	picked := make([]Commodity, 0, len(names))
	for _, n := range names {
		c, ok := t.Commodity(n)
		if !ok {
			return nil, fmt.Errorf("unknown commodity %q", n)
		}
		picked = append(picked, c)
	}
	if err := CheckUnique(picked); err != nil {
		return nil, err
	}
	return &Table{commodities: picked, products: t.products}, nil
}

// Commodities returns a copy of the series commodities.
func (t *Table) Commodities() []Commodity {
	return append([]Commodity(nil), t.commodities...)
}

// Commodity looks up a series commodity by name.
func (t *Table) Commodity(name string) (Commodity, bool) {
	for _, c := range t.commodities {
		if c.Name == name {
			return c, true
		}
	}
	return Commodity{}, false
}

// Products returns the products of a category. Unknown categories fall back
// to vegetables.
func (t *Table) Products(cat Category) []Product {
	if ps, ok := t.products[cat]; ok {
		return append([]Product(nil), ps...)
	}
	return append([]Product(nil), t.products[Vegetables]...)
}

// AllProducts returns a copy of every category's products.
func (t *Table) AllProducts() map[Category][]Product {
	out := make(map[Category][]Product, len(t.products))
	for cat, ps := range t.products {
		out[cat] = append([]Product(nil), ps...)
	}
	return out
}

// ParseCategory maps an id to a Category, falling back to vegetables.
func ParseCategory(s string) Category {
	for _, c := range Categories {
		if string(c.ID) == s {
			return c.ID
		}
	}
	return Vegetables
}
