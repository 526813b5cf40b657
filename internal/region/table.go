package region

// table is ordered: lookups that scan it return the first region that matches.
var table = []Region{
	{"香港", []string{"hk", "HK", "hongkong", "Hongkong", "HongKong", "HONGKONG", "hong kong", "Hong Kong", "HONG KONG"}},
	{"台湾", []string{"tw", "TW", "taiwan", "Taiwan", "TAIWAN", "tai wan", "Tai Wan", "TAI WAN"}},
	{"日本", []string{"jp", "JP", "japan", "Japan", "JAPAN"}},
	{"韩国", []string{"kr", "KR", "korea", "Korea", "KOREA", "south korea", "South Korea", "SOUTH KOREA"}},
	{"新加坡", []string{"sg", "SG", "singapore", "Singapore", "SINGAPORE"}},
	{"美国", []string{"us", "US", "usa", "USA", "united states", "United States", "UNITED STATES", "america", "America", "AMERICA"}},
	{"英国", []string{"uk", "UK", "united kingdom", "United Kingdom", "UNITED KINGDOM", "britain", "Britain", "BRITAIN"}},
	{"德国", []string{"de", "DE", "germany", "Germany", "GERMANY"}},
	{"法国", []string{"fr", "FR", "france", "France", "FRANCE"}},
	{"印度", []string{"in", "IN", "india", "India", "INDIA"}},
	{"澳大利亚", []string{"au", "AU", "australia", "Australia", "AUSTRALIA"}},
	{"加拿大", []string{"ca", "CA", "canada", "Canada", "CANADA"}},
	{"俄罗斯", []string{"ru", "RU", "russia", "Russia", "RUSSIA"}},
	{"巴西", []string{"br", "BR", "brazil", "Brazil", "BRAZIL"}},
	{"意大利", []string{"it", "IT", "italy", "Italy", "ITALY"}},
	{"荷兰", []string{"nl", "NL", "netherlands", "Netherlands", "NETHERLANDS"}},
	{"土耳其", []string{"tr", "TR", "turkey", "Turkey", "TURKEY"}},
	{"泰国", []string{"th", "TH", "thailand", "Thailand", "THAILAND"}},
	{"越南", []string{"vn", "VN", "vietnam", "Vietnam", "VIETNAM"}},
	{"马来西亚", []string{"my", "MY", "malaysia", "Malaysia", "MALAYSIA"}},
	{"菲律宾", []string{"ph", "PH", "philippines", "Philippines", "PHILIPPINES"}},
	{"印度尼西亚", []string{"id", "ID", "indonesia", "Indonesia", "INDONESIA"}},
	{"阿根廷", []string{"ar", "AR", "argentina", "Argentina", "ARGENTINA"}},
	{"瑞士", []string{"ch", "CH", "switzerland", "Switzerland", "SWITZERLAND"}},
	{"瑞典", []string{"se", "SE", "sweden", "Sweden", "SWEDEN"}},
	{"挪威", []string{"no", "NO", "norway", "Norway", "NORWAY"}},
	{"芬兰", []string{"fi", "FI", "finland", "Finland", "FINLAND"}},
	{"爱尔兰", []string{"ie", "IE", "ireland", "Ireland", "IRELAND"}},
	{"波兰", []string{"pl", "PL", "poland", "Poland", "POLAND"}},
	{"南非", []string{"za", "ZA", "south africa", "South Africa", "SOUTH AFRICA"}},
	{"墨西哥", []string{"mx", "MX", "mexico", "Mexico", "MEXICO"}},
	{"西班牙", []string{"es", "ES", "spain", "Spain", "SPAIN"}},
	{"葡萄牙", []string{"pt", "PT", "portugal", "Portugal", "PORTUGAL"}},
	{"比利时", []string{"be", "BE", "belgium", "Belgium", "BELGIUM"}},
	{"奥地利", []string{"at", "AT", "austria", "Austria", "AUSTRIA"}},
}

// serverHints maps host suffixes and keywords to a region, checked in order.
// Approximate: a keyword such as "us" also matches unrelated hosts.
var serverHints = []struct {
	label    string
	suffix   string
	keywords []string
}{
	{"日本", ".jp", []string{"japan", "jp"}},
	{"香港", ".hk", []string{"hongkong", "hk"}},
	{"新加坡", ".sg", []string{"singapore", "sg"}},
	{"台湾", ".tw", []string{"taiwan", "tw"}},
	{"美国", ".us", []string{"america", "us"}},
	{"韩国", ".kr", []string{"korea", "kr"}},
	{"英国", ".uk", []string{"united.kingdom"}},
	{"德国", ".de", []string{"germany"}},
	{"法国", ".fr", []string{"france"}},
	{"加拿大", ".ca", []string{"canada"}},
}

// ipBlocks are illustrative first/second octet ranges, not a geolocation
// database.
var ipBlocks = []struct {
	label      string
	first      []int
	secondLow  int
	secondHigh int
}{
	{"美国", []int{13, 14}, 0, 255},
	{"新加坡", []int{103}, 100, 110},
	{"日本", []int{101}, 32, 36},
	{"香港", []int{219, 220}, 68, 88},
	{"台湾", []int{182}, 230, 250},
}
