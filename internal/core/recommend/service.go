package recommend

import (
	"context"
	"sort"
	"sync"
	"time"

	"skincare-advisor/internal/core/catalog"
	"skincare-advisor/internal/core/ingredient"
	"skincare-advisor/internal/core/scoring"
	"skincare-advisor/internal/infrastructure/config"
	"skincare-advisor/internal/pkg/common"

	"go.uber.org/zap"
)

// Service 推薦協調器
// 每個請求：合併狀況集合 → 解析目錄（經快取）→ 預算過濾 →
// 逐商品評分（經分數快取）→ 門檻過濾 → 穩定排序 → 截斷。
type Service struct {
	config  *config.Config
	catalog *catalog.Service
	engine  *scoring.Engine
	kb      *ingredient.KnowledgeBase
}

// NewService 創建推薦協調器
func NewService(cfg *config.Config, catalogSvc *catalog.Service, engine *scoring.Engine, kb *ingredient.KnowledgeBase) *Service {
	return &Service{
		config:  cfg,
		catalog: catalogSvc,
		engine:  engine,
		kb:      kb,
	}
}

// MergeConditions 合併使用者自選與 AI 檢測到的狀況
// 去重的聯集；檢測結果只補充，不覆蓋使用者的選擇。
// 未知識別符在這裡被丟棄（驗證層通常已擋掉，這裡保底）。
func (s *Service) MergeConditions(userSelected, detected []string) []string {
	seen := make(map[string]struct{}, len(userSelected)+len(detected))
	merged := make([]string, 0, len(userSelected)+len(detected))
	for _, group := range [][]string{userSelected, detected} {
		for _, condition := range group {
			if !s.kb.IsSupported(condition) {
				continue
			}
			if _, ok := seen[condition]; ok {
				continue
			}
			seen[condition] = struct{}{}
			merged = append(merged, condition)
		}
	}
	return merged
}

// Recommend 對一個狀況集合與預算級距產生排序後的推薦清單
func (s *Service) Recommend(ctx context.Context, conditions []string, tierName string) ([]common.ScoredProduct, error) {
	start := time.Now()

	tier, ok := catalog.ParseTier(tierName)
	if !ok {
		return nil, common.ErrInvalidBudget
	}

	products, err := s.catalog.Resolve(ctx, tierName)
	if err != nil {
		return nil, err
	}

	// 價格過濾在快取解析之後做，永遠不進快取鍵
	inBudget := catalog.FilterByTier(products, tier)

	scored := s.scoreAll(inBudget, conditions)
	ranked := RankProducts(scored, s.config.Recommend.ScoreThreshold, s.config.Recommend.MaxResults)

	common.LogInfo("推薦完成",
		zap.String("級距", tierName),
		zap.Strings("狀況", conditions),
		zap.Int("目錄商品數", len(products)),
		zap.Int("預算內商品數", len(inBudget)),
		zap.Int("推薦數", len(ranked)),
		zap.Duration("耗時", time.Since(start)),
	)
	return ranked, nil
}

// scoreAll 以固定數量的工作者並行評分
// 結果依索引寫回，排序輸入順序不受並發影響。
func (s *Service) scoreAll(products []common.Product, conditions []string) []common.ScoredProduct {
	scored := make([]common.ScoredProduct, len(products))

	workers := s.config.Queue.Workers
	if workers > len(products) {
		workers = len(products)
	}
	if workers <= 1 {
		for i, p := range products {
			scored[i] = common.ScoredProduct{Product: p, Score: s.engine.Score(p, conditions, true)}
		}
		return scored
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range indexes {
				p := products[i]
				scored[i] = common.ScoredProduct{Product: p, Score: s.engine.Score(p, conditions, true)}
			}
		}()
	}
	for i := range products {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return scored
}

// RankProducts 門檻過濾、穩定排序（分數高者在前，同分維持目錄順序）、截斷
func RankProducts(scored []common.ScoredProduct, threshold, limit int) []common.ScoredProduct {
	ranked := make([]common.ScoredProduct, 0, len(scored))
	for _, sp := range scored {
		if sp.Score >= threshold {
			ranked = append(ranked, sp)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
