package refdata

import "slices"

// Province is a province-level region and its selectable cities.
type Province struct {
	Name   string   `json:"name"`
	Cities []string `json:"cities"`
}

// DefaultProvince is used when a request names no province.
const DefaultProvince = "北京"

// Provinces lists every region in display order.
var Provinces = []Province{
	{"北京", []string{"北京", "朝阳区", "海淀区", "丰台区", "昌平区"}},
	{"上海", []string{"上海", "浦东新区", "徐汇区", "静安区", "黄浦区"}},
	{"天津", []string{"天津", "和平区", "河东区", "河西区", "南开区"}},
	{"重庆", []string{"重庆", "渝中区", "江北区", "沙坪坝区", "九龙坡区"}},
	{"广东", []string{"广州", "深圳", "珠海", "东莞", "佛山", "中山", "惠州"}},
	{"四川", []string{"成都", "绵阳", "德阳", "宜宾", "泸州", "乐山", "南充"}},
	{"浙江", []string{"杭州", "宁波", "温州", "绍兴", "金华", "台州", "湖州"}},
	{"江苏", []string{"南京", "苏州", "无锡", "常州", "扬州", "镇江", "南通"}},
	{"山东", []string{"济南", "青岛", "烟台", "威海", "潍坊", "临沂", "济宁"}},
	{"河南", []string{"郑州", "洛阳", "开封", "新乡", "许昌", "平顶山", "安阳"}},
	{"湖北", []string{"武汉", "宜昌", "襄阳", "十堰", "荆州", "黄石", "孝感"}},
	{"湖南", []string{"长沙", "株洲", "湘潭", "衡阳", "岳阳", "常德", "郴州"}},
	{"河北", []string{"石家庄", "唐山", "秦皇岛", "保定", "邯郸", "廊坊", "沧州"}},
	{"安徽", []string{"合肥", "芜湖", "蚌埠", "淮南", "黄山", "安庆", "阜阳"}},
	{"江西", []string{"南昌", "九江", "景德镇", "萍乡", "赣州", "吉安", "宜春"}},
	{"福建", []string{"福州", "厦门", "泉州", "漳州", "三明", "莆田", "南平"}},
	{"辽宁", []string{"沈阳", "大连", "鞍山", "抚顺", "本溪", "锦州", "丹东"}},
	{"吉林", []string{"长春", "吉林", "四平", "通化", "白山", "松原", "白城"}},
	{"黑龙江", []string{"哈尔滨", "齐齐哈尔", "牡丹江", "佳木斯", "大庆", "鸡西", "绥化"}},
	{"海南", []string{"海口", "三亚", "三沙", "儋州", "文昌", "琼海", "万宁"}},
	{"山西", []string{"太原", "大同", "阳泉", "长治", "晋城", "朔州", "晋中"}},
	{"贵州", []string{"贵阳", "遵义", "六盘水", "安顺", "毕节", "铜仁", "黔东南"}},
	{"云南", []string{"昆明", "曲靖", "玉溪", "保山", "昭通", "丽江", "普洱"}},
	{"陕西", []string{"西安", "宝鸡", "咸阳", "铜川", "渭南", "延安", "汉中"}},
	{"甘肃", []string{"兰州", "嘉峪关", "金昌", "白银", "天水", "武威", "张掖"}},
	{"青海", []string{"西宁", "海东", "海北", "黄南", "海南", "果洛", "玉树"}},
	{"内蒙古", []string{"呼和浩特", "包头", "乌海", "赤峰", "通辽", "鄂尔多斯", "呼伦贝尔"}},
	{"广西", []string{"南宁", "柳州", "桂林", "梧州", "北海", "钦州", "贵港"}},
	{"西藏", []string{"拉萨", "日喀则", "昌都", "林芝", "山南", "那曲", "阿里"}},
	{"宁夏", []string{"银川", "石嘴山", "吴忠", "固原", "中卫"}},
	{"新疆", []string{"乌鲁木齐", "克拉玛依", "吐鲁番", "哈密", "阿克苏", "喀什", "伊犁"}},
	{"香港", []string{"香港"}},
	{"澳门", []string{"澳门"}},
	{"台湾", []string{"台北", "高雄", "台中", "台南", "基隆", "新竹", "嘉义"}},
}

var (
	municipalities = []string{"北京", "上海", "天津", "重庆"}
	specialRegions = []string{"香港", "澳门", "台湾"}
	northern       = []string{"北京", "天津", "河北", "山西", "内蒙古", "辽宁", "吉林", "黑龙江"}
	southern       = []string{"广东", "广西", "海南", "福建", "台湾", "香港", "澳门"}
)

// Cities returns the cities of a province, or nil if unknown.
func Cities(province string) []string {
	for _, p := range Provinces {
		if p.Name == province {
			return p.Cities
		}
	}
	return nil
}

// ResolveLocation fills in defaults: an empty province becomes DefaultProvince
// and an empty city becomes the province's first city.
func ResolveLocation(province, city string) (string, string) {
	if province == "" {
		province = DefaultProvince
	}
	if city == "" {
		if cs := Cities(province); len(cs) > 0 {
			city = cs[0]
		} else {
			city = DefaultProvince
		}
	}
	return province, city
}

// IsMunicipality reports whether lookups should search by province name.
func IsMunicipality(province string) bool { return slices.Contains(municipalities, province) }

// IsSpecialRegion reports whether the region has no weather coverage.
func IsSpecialRegion(province string) bool { return slices.Contains(specialRegions, province) }

// IsNorthern reports whether the province has a northern climate.
func IsNorthern(province string) bool { return slices.Contains(northern, province) }

// IsSouthern reports whether the province has a southern climate.
func IsSouthern(province string) bool { return slices.Contains(southern, province) }
