package crop

import (
	"time"

	"agrimarket/internal/refdata"

	"github.com/shopspring/decimal"
)

// Summary aggregates a production set.
type Summary struct {
	TotalProduction     Measure         `json:"total_production"`
	AvgYield            Measure         `json:"avg_yield"`
	AvgProductionChange decimal.Decimal `json:"avg_production_change"`
	AvgAreaChange       decimal.Decimal `json:"avg_area_change"`
	CropCount           int             `json:"crop_count"`
}

// Highlight names a leading crop and, where meaningful, its share in percent.
type Highlight struct {
	Name  string           `json:"name"`
	Value Measure          `json:"value"`
	Share *decimal.Decimal `json:"share,omitempty"`
}

// Highlights are the leading crops of a set. The first crop wins ties.
type Highlights struct {
	LargestArea       *Highlight `json:"largest_area"`
	HighestProduction *Highlight `json:"highest_production"`
	HighestYield      *Highlight `json:"highest_yield"`
}

// Trends describes the direction of production and area.
type Trends struct {
	Production string `json:"production"`
	Area       string `json:"area"`
	Overall    string `json:"overall"`
}

// TrendAnalysis summarizes a crop type's production set.
type TrendAnalysis struct {
	CropType   refdata.CropType `json:"crop_type"`
	Summary    Summary          `json:"summary"`
	Highlights Highlights       `json:"highlights"`
	Trends     Trends           `json:"trends"`
	Analysis   string           `json:"analysis"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Analyze derives the trend analysis of a production set as of now.
func Analyze(set *ProductionSet, now time.Time) *TrendAnalysis {
	a := &TrendAnalysis{
		CropType:  set.CropType,
		UpdatedAt: now,
		Summary: Summary{
			TotalProduction: Measure{Unit: refdata.UnitProduction},
			AvgYield:        Measure{Unit: refdata.UnitYield},
			CropCount:       len(set.Crops),
		},
	}

	var totalArea, sumYield int64
	var sumProd, sumArea decimal.Decimal
	var largest, producer, yielder *Production
	for i := range set.Crops {
		c := &set.Crops[i]
		a.Summary.TotalProduction.Value += c.Production.Value
		totalArea += c.Area.Value
		sumYield += c.Yield.Value
		sumProd = sumProd.Add(c.AnnualChange.Production)
		sumArea = sumArea.Add(c.AnnualChange.Area)

		if largest == nil || c.Area.Value > largest.Area.Value {
			largest = c
		}
		if producer == nil || c.Production.Value > producer.Production.Value {
			producer = c
		}
		if yielder == nil || c.Yield.Value > yielder.Yield.Value {
			yielder = c
		}
	}

	if n := len(set.Crops); n > 0 {
		count := decimal.NewFromInt(int64(n))
		a.Summary.AvgYield.Value = decimal.NewFromInt(sumYield).Div(count).Round(0).IntPart()
		a.Summary.AvgProductionChange = sumProd.Div(count).Round(1)
		a.Summary.AvgAreaChange = sumArea.Div(count).Round(1)

		a.Highlights = Highlights{
			LargestArea:       &Highlight{Name: largest.Name, Value: largest.Area, Share: share(largest.Area.Value, totalArea)},
			HighestProduction: &Highlight{Name: producer.Name, Value: producer.Production, Share: share(producer.Production.Value, a.Summary.TotalProduction.Value)},
			HighestYield:      &Highlight{Name: yielder.Name, Value: yielder.Yield},
		}
	}

	a.Trends = trends(a.Summary.AvgProductionChange, a.Summary.AvgAreaChange)
	a.Analysis = analysisText(set.CropType, a.Summary.AvgProductionChange)
	return a
}

func share(part, total int64) *decimal.Decimal {
	if total == 0 {
		return nil
	}
	d := decimal.NewFromInt(part).Div(decimal.NewFromInt(total)).Mul(decimal.NewFromInt(100)).Round(1)
	return &d
}

func trends(prod, area decimal.Decimal) Trends {
	t := Trends{Production: "下降", Area: "缩减", Overall: "产量略有下降"}
	if prod.IsPositive() {
		t.Production = "增长"
		t.Overall = "产量稳中有升"
	}
	if prod.GreaterThan(decimal.NewFromInt(1)) {
		t.Overall = "产量显著增长"
	}
	if area.IsPositive() {
		t.Area = "扩大"
	}
	return t
}

// analysisText picks the narrative for a crop type by its average
// production change: strong growth, modest growth or decline.
func analysisText(t refdata.CropType, change decimal.Decimal) string {
	texts, ok := analysisTexts[t]
	if !ok {
		return "农作物总体生产情况稳定，结构持续优化。科技创新和政策支持为农业发展提供了有力保障。建议进一步提高农业现代化水平，增强农业竞争力。"
	}
	threshold := decimal.NewFromInt(3)
	if t == refdata.CropGrains {
		threshold = decimal.NewFromInt(2)
	}
	switch {
	case change.GreaterThan(threshold):
		return texts[0]
	case change.IsPositive():
		return texts[1]
	default:
		return texts[2]
	}
}

var analysisTexts = map[refdata.CropType][3]string{
	refdata.CropGrains: {
		"粮食作物产量显著增长，主要得益于良种推广和农业科技进步。单产提升是增产的主要因素，种植面积变化不大。预计未来产量将保持稳定增长，国家粮食安全有保障。",
		"粮食作物生产总体稳定，产量略有增长。农业基础设施改善和机械化水平提高促进了生产效率提升。建议继续加强科技投入，提高产量潜力。",
		"粮食作物产量略有下降，可能受极端天气、种植结构调整等因素影响。建议加大农业支持力度，提高农民种粮积极性，确保粮食安全。",
	},
	refdata.CropEconomic: {
		"经济作物生产迅速增长，市场需求旺盛。高附加值作物种植面积扩大，农民收入明显提高。产业链延伸和加工能力提升为增长提供了动力。",
		"经济作物生产稳中有升，市场价格总体平稳。种植结构持续优化，区域特色优势进一步凸显。建议加强品牌建设，提高产品附加值。",
		"经济作物生产面临挑战，产量和种植面积有所下降。国际市场竞争加剧和成本上升是主要影响因素。建议调整种植结构，发展特色高效农业。",
	},
	refdata.CropVegetables: {
		"蔬菜产量大幅增长，设施农业发展迅速。消费升级推动了多样化、高品质蔬菜需求增加。种植技术进步和标准化生产推动了单产提高和品质改善。",
		"蔬菜生产总体稳定，区域布局更加合理。季节性供应结构改善，反季节蔬菜生产能力增强。建议发展绿色有机蔬菜，满足消费升级需求。",
		"蔬菜生产出现波动，局部地区受灾害天气影响较大。劳动力成本上升和环保压力加大是产业面临的主要挑战。建议加强科技投入，推进蔬菜生产现代化。",
	},
	refdata.CropFruits: {
		"水果产量显著增长，优质果品比例提高。新品种引进和种植技术改进促进了产业升级。水果加工和冷链物流体系建设加快，产业链更加完善。",
		"水果生产保持稳定增长，品质持续提升。区域特色果品发展良好，品牌效应逐步显现。建议加强病虫害综合防治，提高果品质量安全水平。",
		"水果产量略有下降，市场竞争加剧。气候变化和自然灾害对产量和品质造成一定影响。建议调整品种结构，增强抗风险能力，提高果品附加值。",
	},
}
