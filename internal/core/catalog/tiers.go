package catalog

import "sort"

// Tier 預算級距：一個命名的價格區間，也是目錄快取的分割鍵
// 價格落在 [Min, Max]（含上界）視為屬於該級距。
type Tier struct {
	Name string
	Min  float64
	Max  float64
}

// 固定的預算級距枚舉（商店幣別單位）
var tiers = map[string]Tier{
	"low":    {Name: "low", Min: 0, Max: 19.99},
	"mid":    {Name: "mid", Min: 20, Max: 49.99},
	"high":   {Name: "high", Min: 50, Max: 99.99},
	"luxury": {Name: "luxury", Min: 100, Max: 10000},
}

// ParseTier 解析預算級距識別符
func ParseTier(name string) (Tier, bool) {
	tier, ok := tiers[name]
	return tier, ok
}

// TierNames 回傳所有支援的級距識別符（排序後）
func TierNames() []string {
	names := make([]string, 0, len(tiers))
	for name := range tiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Contains 判斷價格是否落在級距內（上界含）
func (t Tier) Contains(price float64) bool {
	return price >= t.Min && price <= t.Max
}
