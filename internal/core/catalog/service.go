package catalog

import (
	"context"

	"skincare-advisor/internal/core/cache"
	"skincare-advisor/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Fetcher 目錄抓取介面
type Fetcher interface {
	FetchPublishedProducts(ctx context.Context) ([]common.Product, error)
}

// Service 目錄解析服務
// 快取鍵只有預算級距：同一級距的所有使用者共用一次抓取，
// 不論各自的狀況集合為何。價格區間過濾由呼叫端在解析之後進行，
// 永遠不會混進快取鍵。
type Service struct {
	fetcher Fetcher
	cache   *cache.Manager
	flight  singleflight.Group
}

// NewService 創建目錄解析服務
func NewService(fetcher Fetcher, cacheManager *cache.Manager) *Service {
	return &Service{
		fetcher: fetcher,
		cache:   cacheManager,
	}
}

// Resolve 解析某預算級距的商品目錄
// 快取命中時零外部呼叫；未命中時同級距的並發請求合流為一次抓取。
// 抓取失敗不動既有（即使已過期的）快取條目，下一次呼叫可以重試。
func (s *Service) Resolve(ctx context.Context, tier string) ([]common.Product, error) {
	if products, ok := s.cache.GetCatalog(tier); ok {
		common.LogCacheHit("catalog", tier)
		return products, nil
	}
	common.LogCacheMiss("catalog", tier)

	v, err, shared := s.flight.Do(tier, func() (interface{}, error) {
		// 合流等待期間可能已有人寫入快取
		if products, ok := s.cache.GetCatalog(tier); ok {
			return products, nil
		}

		products, err := s.fetcher.FetchPublishedProducts(ctx)
		if err != nil {
			return nil, err
		}

		products = dedupeByID(products)
		s.cache.SetCatalog(tier, products)
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		common.LogDebug("目錄抓取合流", zap.String("級距", tier))
	}

	return v.([]common.Product), nil
}

// FilterByTier 依級距價格區間過濾商品（上界含）
func FilterByTier(products []common.Product, tier Tier) []common.Product {
	filtered := make([]common.Product, 0, len(products))
	for _, p := range products {
		if tier.Contains(p.Price) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// dedupeByID 以商品 ID 去重，重複時保留最後一筆的內容，
// 但維持第一次出現的位置，讓目錄順序穩定。
func dedupeByID(products []common.Product) []common.Product {
	index := make(map[string]int, len(products))
	deduped := make([]common.Product, 0, len(products))
	for _, p := range products {
		if i, seen := index[p.ID]; seen {
			deduped[i] = p
			continue
		}
		index[p.ID] = len(deduped)
		deduped = append(deduped, p)
	}
	return deduped
}
