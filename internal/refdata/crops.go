package refdata

// CropType groups crops in the production statistics.
type CropType string

const (
	CropGrains     CropType = "grains"
	CropEconomic   CropType = "economic"
	CropVegetables CropType = "vegetables"
	CropFruits     CropType = "fruits"
)

// CropTypeInfo is a crop type with its display name.
type CropTypeInfo struct {
	ID   CropType `json:"id"`
	Name string   `json:"name"`
}

// CropTypes lists the crop groups in display order.
var CropTypes = []CropTypeInfo{
	{ID: CropGrains, Name: "粮食作物"},
	{ID: CropEconomic, Name: "经济作物"},
	{ID: CropVegetables, Name: "蔬菜作物"},
	{ID: CropFruits, Name: "水果作物"},
}

// ParseCropType resolves an id to a crop type. Unknown ids resolve to grains.
func ParseCropType(s string) CropType {
	for _, c := range CropTypes {
		if string(c.ID) == s {
			return c.ID
		}
	}
	return CropGrains
}

// Units of the crop statistics.
const (
	UnitArea       = "千公顷"
	UnitProduction = "千吨"
	UnitYield      = "公斤/公顷"
)

// RegionShare is a province's share of national production, in percent.
type RegionShare struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// Suitability describes where and how a crop grows best.
type Suitability struct {
	Climate     string   `json:"climate"`
	Soil        string   `json:"soil"`
	Regions     []string `json:"regions"`
	Temperature string   `json:"temperature"`
	Water       string   `json:"water"`
}

// Crop is the baseline national statistics of one crop. Area is in
// thousand hectares, production in thousand tonnes, yield in kg/ha.
type Crop struct {
	Name       string
	Area       float64
	Production float64
	Yield      float64
	Regions    []RegionShare
	// PriceMin and PriceMax bound the farm-gate price in yuan per tonne.
	PriceMin, PriceMax float64
}

func crop(name string, area, production, yield, pmin, pmax float64, regions ...RegionShare) Crop {
	return Crop{Name: name, Area: area, Production: production, Yield: yield, Regions: regions, PriceMin: pmin, PriceMax: pmax}
}

func rs(name string, pct float64) RegionShare { return RegionShare{Name: name, Percentage: pct} }

// DefaultCropPriceRange applies to crops without a known price range.
var DefaultCropPriceRange = [2]float64{3000, 5000}

var crops = map[CropType][]Crop{
	CropGrains: {
		crop("水稻", 29850, 207640, 6957, 2600, 3000, rs("湖南", 13.5), rs("江西", 11.2), rs("黑龙江", 10.8), rs("江苏", 9.6), rs("湖北", 8.9)),
		crop("小麦", 23730, 134250, 5658, 2400, 2800, rs("河南", 25.3), rs("山东", 15.8), rs("河北", 10.6), rs("安徽", 9.2), rs("江苏", 8.4)),
		crop("玉米", 42429, 272550, 6423, 2200, 2600, rs("黑龙江", 16.2), rs("吉林", 12.8), rs("河南", 10.5), rs("山东", 9.7), rs("内蒙古", 9.3)),
		crop("大豆", 9516, 19600, 2060, 4000, 5200, rs("黑龙江", 42.5), rs("内蒙古", 11.8), rs("吉林", 7.6), rs("河南", 5.3), rs("安徽", 4.9)),
		crop("薯类", 8120, 136430, 16801, 1000, 1500, rs("四川", 14.2), rs("贵州", 10.5), rs("甘肃", 8.7), rs("云南", 7.9), rs("河南", 6.8)),
	},
	CropEconomic: {
		crop("棉花", 3170, 5900, 1861, 14000, 16000, rs("新疆", 76.3), rs("河北", 5.8), rs("山东", 4.7), rs("江苏", 3.2), rs("湖北", 2.5)),
		crop("油菜籽", 6700, 13500, 2015, 4500, 5500, rs("湖北", 17.5), rs("湖南", 15.2), rs("四川", 13.8), rs("江苏", 10.9), rs("安徽", 9.7)),
		crop("花生", 4640, 17830, 3842, 8000, 10000, rs("河南", 22.3), rs("山东", 20.5), rs("河北", 10.7), rs("广东", 8.3), rs("江西", 6.2)),
		crop("甘蔗", 1590, 107650, 67704, 500, 700, rs("广西", 62.7), rs("云南", 18.3), rs("广东", 14.9), rs("海南", 3.5), rs("福建", 0.6)),
		crop("茶叶", 3060, 2960, 967, 40000, 100000, rs("福建", 18.6), rs("云南", 16.8), rs("贵州", 11.5), rs("浙江", 11.2), rs("湖南", 8.7)),
	},
	CropVegetables: {
		crop("蔬菜总计", 20510, 721040, 35156, 0, 0, rs("山东", 12.8), rs("河南", 10.6), rs("河北", 8.9), rs("江苏", 7.3), rs("四川", 6.7)),
		crop("番茄", 983, 63750, 64850, 1500, 3000, rs("新疆", 19.5), rs("山东", 14.7), rs("河北", 9.8), rs("内蒙古", 6.3), rs("江苏", 5.9)),
		crop("黄瓜", 1230, 70850, 57602, 2000, 4000, rs("山东", 18.3), rs("河北", 12.7), rs("河南", 10.2), rs("辽宁", 7.5), rs("江苏", 6.8)),
		crop("白菜", 1560, 61750, 39583, 1000, 2000, rs("山东", 15.3), rs("河北", 12.8), rs("辽宁", 10.6), rs("河南", 8.9), rs("内蒙古", 7.3)),
		crop("辣椒", 1750, 42730, 24417, 3000, 6000, rs("湖南", 14.7), rs("贵州", 12.3), rs("河南", 9.8), rs("四川", 8.6), rs("山东", 7.5)),
	},
	CropFruits: {
		crop("水果总计", 12780, 286520, 22419, 0, 0, rs("山东", 11.5), rs("广东", 8.9), rs("广西", 8.3), rs("湖北", 7.6), rs("四川", 6.8)),
		crop("苹果", 2320, 44770, 19297, 4000, 8000, rs("陕西", 25.3), rs("山东", 19.6), rs("甘肃", 12.8), rs("河南", 8.7), rs("河北", 7.9)),
		crop("柑橘", 2610, 44860, 17188, 3000, 6000, rs("湖北", 16.8), rs("广西", 15.7), rs("四川", 14.3), rs("浙江", 11.5), rs("湖南", 8.9)),
		crop("香蕉", 420, 11250, 26786, 3500, 5500, rs("广东", 28.5), rs("广西", 24.7), rs("海南", 20.3), rs("云南", 18.6), rs("福建", 7.9)),
		crop("葡萄", 820, 14320, 17463, 5000, 12000, rs("新疆", 22.6), rs("河北", 12.8), rs("山东", 11.5), rs("辽宁", 8.3), rs("河南", 7.6)),
	},
}

// Crops returns the baseline statistics of a crop type. Unknown types fall
// back to grains.
func Crops(t CropType) []Crop {
	if cs, ok := crops[t]; ok {
		return cs
	}
	return crops[CropGrains]
}

// PriceRange returns the crop's price bounds, or the default range when the
// crop has none.
func (c Crop) PriceRange() (lo, hi float64) {
	if c.PriceMax <= 0 {
		return DefaultCropPriceRange[0], DefaultCropPriceRange[1]
	}
	return c.PriceMin, c.PriceMax
}

var suitability = map[string]Suitability{
	"水稻": {Climate: "温暖湿润", Soil: "粘重土壤，保水性强", Regions: []string{"华南", "华东", "华中", "东北"},
		Temperature: "15-35°C，生育期间平均气温需高于20°C", Water: "全生育期需水量为800-1000mm"},
	"小麦": {Climate: "温和干燥", Soil: "肥沃的壤土或轻粘土", Regions: []string{"华北", "西北", "华东", "西南"},
		Temperature: "15-25°C，越冬期需在0°C以上", Water: "全生育期需水量为450-650mm"},
	"玉米": {Climate: "温暖", Soil: "疏松肥沃的壤土", Regions: []string{"东北", "华北", "西南", "西北"},
		Temperature: "20-30°C，不耐霜冻", Water: "全生育期需水量为500-800mm"},
	"大豆": {Climate: "温暖湿润", Soil: "排水良好的壤土或砂壤土", Regions: []string{"东北", "华北", "华中", "西南"},
		Temperature: "15-30°C，不耐霜冻", Water: "全生育期需水量为450-700mm"},
	"棉花": {Climate: "温暖干燥", Soil: "排水良好的壤土", Regions: []string{"西北", "华北", "华中", "华东"},
		Temperature: "25-35°C，生育期长，无霜期需在200天以上", Water: "全生育期需水量为500-700mm"},
}

var genericSuitability = Suitability{
	Climate: "温和适宜", Soil: "肥沃土壤，排水良好", Regions: []string{"多数地区均可种植"},
	Temperature: "因地区而异", Water: "需适量灌溉",
}

// SuitabilityOf returns the growing conditions of a crop, or a generic
// description for crops without one.
func SuitabilityOf(name string) Suitability {
	if s, ok := suitability[name]; ok {
		return s
	}
	return genericSuitability
}
