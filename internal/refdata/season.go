package refdata

import "time"

// Season of the year, northern hemisphere.
type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
	Winter Season = "winter"
)

// SeasonOf maps a calendar month to its season: spring 3-5, summer 6-8,
// autumn 9-11, winter otherwise.
func SeasonOf(m time.Month) Season {
	switch {
	case m >= time.March && m <= time.May:
		return Spring
	case m >= time.June && m <= time.August:
		return Summer
	case m >= time.September && m <= time.November:
		return Autumn
	default:
		return Winter
	}
}

// DisplayName returns the Chinese season name.
func (s Season) DisplayName() string {
	switch s {
	case Spring:
		return "春季"
	case Summer:
		return "夏季"
	case Autumn:
		return "秋季"
	case Winter:
		return "冬季"
	}
	return "当前季节"
}

var seasonalProducts = map[Category]map[Season][]string{
	Vegetables: {
		Spring: {"菠菜", "芹菜", "春笋", "蒜苗"},
		Summer: {"黄瓜", "茄子", "西红柿", "辣椒"},
		Autumn: {"白菜", "萝卜", "南瓜", "豆角"},
		Winter: {"大白菜", "白萝卜", "土豆", "卷心菜"},
	},
	Fruits: {
		Spring: {"草莓", "枇杷", "樱桃", "杨梅"},
		Summer: {"西瓜", "桃子", "葡萄", "荔枝"},
		Autumn: {"苹果", "梨", "柿子", "柚子"},
		Winter: {"橙子", "柑橘", "猕猴桃", "火龙果"},
	},
}

// SeasonalProducts returns the in-season products of a category, if tracked.
func SeasonalProducts(cat Category, s Season) []string {
	return seasonalProducts[cat][s]
}
