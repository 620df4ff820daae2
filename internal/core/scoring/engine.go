package scoring

import (
	"math"
	"sort"
	"strings"

	"skincare-advisor/internal/core/cache"
	"skincare-advisor/internal/core/ingredient"
	"skincare-advisor/internal/pkg/common"

	"go.uber.org/zap"
)

// 評分規則的常數
const (
	beneficialPoints   = 12  // 每個命中的有益成分
	concentrationBonus = 5   // 有益成分同時出現在成分表前五名
	avoidPenalty       = 25  // 每個命中的應避免成分
	nameMentionBonus   = 8   // 商品名稱直接提到狀況
	descMentionBonus   = 15  // 商品描述直接提到狀況
	qualityThreshold   = 10  // 成分 token 超過此數量觸發品質乘數
	qualityMultiplier  = 1.1 // 品質乘數
	leadingTokenCount  = 5   // 視為高濃度的前幾名 token 數
)

// Engine 評分引擎
// 對單一商品與狀況集合計算 0-100 的匹配分數。
// 計算前先查分數快取，算完寫回；快取條目存活期間分數不重算，
// 即使目錄快取已更新（商品+狀況是唯一的快取維度）。
type Engine struct {
	kb      *ingredient.KnowledgeBase
	matcher *ingredient.Matcher
	cache   *cache.Manager
}

// NewEngine 創建評分引擎
func NewEngine(kb *ingredient.KnowledgeBase, matcher *ingredient.Matcher, cacheManager *cache.Manager) *Engine {
	return &Engine{
		kb:      kb,
		matcher: matcher,
		cache:   cacheManager,
	}
}

// Matcher 回傳引擎使用的匹配器（統計觀測用）
func (e *Engine) Matcher() *ingredient.Matcher {
	return e.matcher
}

// Score 計算商品對狀況集合的匹配分數
// useCache 為 false 時跳過快取讀取，但計算結果仍會寫回快取。
func (e *Engine) Score(p common.Product, conditions []string, useCache bool) int {
	key := cache.ScoreKey(p.ID, conditions)

	if useCache {
		if score, ok := e.cache.GetScore(key); ok {
			return score
		}
	}

	score := e.compute(p, conditions)
	e.cache.SetScore(key, score)
	return score
}

// compute 實際的評分計算
// 每個狀況的貢獻純加法、彼此獨立，所以結果與迭代順序無關；
// 乘數與四捨五入只在最後做一次。
func (e *Engine) compute(p common.Product, conditions []string) int {
	set := ingredient.NewSetFromString(p.IngredientSource())
	leading := set.FirstN(leadingTokenCount)

	name := strings.ToLower(p.Name)
	desc := strings.ToLower(p.Description)
	shortDesc := strings.ToLower(p.ShortDescription)

	sum := 0
	for _, condition := range dedupeSorted(conditions) {
		// 未知狀況直接忽略：驗證層早該擋掉，這裡只是保底
		if !e.kb.IsSupported(condition) {
			common.LogDebug("忽略未知的肌膚狀況", zap.String("狀況", condition))
			continue
		}

		for _, beneficial := range e.kb.BeneficialFor(condition) {
			if !e.matcher.HasIngredient(set, beneficial) {
				continue
			}
			sum += beneficialPoints
			// 成分表前幾名視為高濃度
			if e.matcher.MatchesAny(leading, beneficial) {
				sum += concentrationBonus
			}
		}

		for _, avoid := range e.kb.AvoidFor(condition) {
			if e.matcher.HasIngredient(set, avoid) {
				sum -= avoidPenalty
			}
		}

		// 狀況識別符出現在名稱或描述中（連字號換成空格也算）
		spaced := strings.ReplaceAll(condition, "-", " ")
		if strings.Contains(name, condition) || strings.Contains(name, spaced) {
			sum += nameMentionBonus
		}
		if strings.Contains(shortDesc, condition) || strings.Contains(shortDesc, spaced) ||
			strings.Contains(desc, condition) || strings.Contains(desc, spaced) {
			sum += descMentionBonus
		}
	}

	score := float64(sum)
	if set.Size() > qualityThreshold {
		score *= qualityMultiplier
	}

	// 先乘後夾，最後才四捨五入
	if score < 0 {
		score = 0
	} else if score > 100 {
		score = 100
	}
	return int(math.Round(score))
}

// dedupeSorted 去重並排序狀況集合，讓迭代順序可重現
func dedupeSorted(conditions []string) []string {
	seen := make(map[string]struct{}, len(conditions))
	result := make([]string, 0, len(conditions))
	for _, c := range conditions {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		result = append(result, c)
	}
	sort.Strings(result)
	return result
}
