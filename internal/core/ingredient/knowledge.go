package ingredient

import "sort"

// Entry 單一肌膚狀況的成分知識
// Beneficial 的順序是穩定的（不影響權重，但保證可重現）
type Entry struct {
	Beneficial []string
	Avoid      []string
}

// KnowledgeBase 肌膚狀況與成分的靜態對照表
// 啟動時載入一次，執行期間只讀
type KnowledgeBase struct {
	entries map[string]Entry
}

// NewKnowledgeBase 載入內建的狀況-成分知識庫
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{entries: map[string]Entry{
		"acne": {
			Beneficial: []string{"salicylic acid", "niacinamide", "benzoyl peroxide", "tea tree", "sulfur", "azelaic acid", "retinol"},
			Avoid:      []string{"coconut oil", "isopropyl myristate", "lanolin", "algae extract"},
		},
		"oily": {
			Beneficial: []string{"zinc", "kaolin", "witch hazel", "clay", "charcoal"},
			Avoid:      []string{"dimethicone", "mineral oil", "petrolatum", "shea butter"},
		},
		"dryness": {
			Beneficial: []string{"hyaluronic acid", "glycerin", "ceramides", "squalane", "shea butter", "urea", "panthenol"},
			Avoid:      []string{"alcohol denat.", "salicylic acid", "benzoyl peroxide", "clay"},
		},
		"aging": {
			Beneficial: []string{"retinol", "peptides", "vitamin c", "bakuchiol", "coenzyme q10", "niacinamide"},
			Avoid:      []string{"alcohol denat."},
		},
		"dark-spots": {
			Beneficial: []string{"vitamin c", "kojic acid", "arbutin", "tranexamic acid", "licorice root", "azelaic acid"},
			Avoid:      []string{"fragrance"},
		},
		"redness": {
			Beneficial: []string{"centella asiatica", "allantoin", "aloe vera", "azelaic acid", "green tea"},
			Avoid:      []string{"alcohol denat.", "menthol", "fragrance"},
		},
		"sensitivity": {
			Beneficial: []string{"oat extract", "allantoin", "panthenol", "centella asiatica", "bisabolol"},
			Avoid:      []string{"fragrance", "alcohol denat.", "essential oil", "menthol", "sodium lauryl sulfate"},
		},
		"dullness": {
			Beneficial: []string{"vitamin c", "glycolic acid", "lactic acid", "papaya enzyme", "niacinamide"},
			Avoid:      []string{"mineral oil"},
		},
		"uneven-texture": {
			Beneficial: []string{"glycolic acid", "lactic acid", "retinol", "urea"},
			Avoid:      []string{"petrolatum"},
		},
	}}
}

// BeneficialFor 取得某狀況的有益成分列表；未知狀況回傳 nil 而非失敗
func (kb *KnowledgeBase) BeneficialFor(condition string) []string {
	return kb.entries[condition].Beneficial
}

// AvoidFor 取得某狀況的應避免成分列表；未知狀況回傳 nil 而非失敗
func (kb *KnowledgeBase) AvoidFor(condition string) []string {
	return kb.entries[condition].Avoid
}

// IsSupported 判斷狀況識別符是否在支援的枚舉內
func (kb *KnowledgeBase) IsSupported(condition string) bool {
	_, ok := kb.entries[condition]
	return ok
}

// Conditions 回傳所有支援的狀況識別符（排序後，保證輸出穩定）
func (kb *KnowledgeBase) Conditions() []string {
	conditions := make([]string, 0, len(kb.entries))
	for condition := range kb.entries {
		conditions = append(conditions, condition)
	}
	sort.Strings(conditions)
	return conditions
}
