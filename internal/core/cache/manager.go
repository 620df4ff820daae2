package cache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"skincare-advisor/internal/infrastructure/config"
	"skincare-advisor/internal/pkg/common"

	"go.uber.org/zap"
)

// Manager 緩存管理器
// 三個獨立的 TTL 快取：目錄（以預算級距為鍵）、分數（以商品+狀況集合為鍵）、
// 膚況分析（以圖片哈希為鍵）。每個快取有自己的鎖與 TTL，
// 共用一個清理協程。讀取永遠自行檢查條目年齡，不依賴清理協程。
type Manager struct {
	config *config.Config

	catalogMu sync.RWMutex
	catalog   map[string]catalogEntry

	scoreMu sync.RWMutex
	scores  map[string]scoreEntry

	analysisMu sync.RWMutex
	analysis   map[string]analysisEntry

	mirror *scoreMirror // 可選的 Redis 鏡像，可能為 nil

	statsMu sync.Mutex
	stats   cacheStats

	done chan struct{}
}

type catalogEntry struct {
	products []common.Product
	storedAt time.Time
}

type scoreEntry struct {
	score    int
	storedAt time.Time
}

type analysisEntry struct {
	result   common.SkinAnalysisResult
	storedAt time.Time
}

// cacheStats 緩存統計
type cacheStats struct {
	hits      int64
	misses    int64
	evictions int64
}

// NewManager 創建新的緩存管理器
func NewManager(cfg *config.Config) *Manager {
	if !cfg.Cache.Enabled {
		common.LogInfo("Cache disabled")
		return nil
	}

	m := &Manager{
		config:   cfg,
		catalog:  make(map[string]catalogEntry),
		scores:   make(map[string]scoreEntry),
		analysis: make(map[string]analysisEntry),
		done:     make(chan struct{}),
	}

	if cfg.Cache.RedisEnabled {
		mirror, err := newScoreMirror(cfg.Cache.RedisAddr)
		if err != nil {
			// 鏡像失敗只降級，不阻止啟動
			common.LogWarn("Redis 分數鏡像初始化失敗，改用純本地快取", zap.Error(err))
		} else {
			m.mirror = mirror
		}
	}

	// 啟動清理過期緩存的協程
	go m.startCleanup()

	common.LogInfo("快取管理員已初始化",
		zap.Duration("目錄存活時間", cfg.Cache.CatalogTTL),
		zap.Duration("分數存活時間", cfg.Cache.ScoreTTL),
		zap.Duration("分析存活時間", cfg.Cache.AnalysisTTL),
		zap.Duration("清理間隔", cfg.Cache.CleanupInterval),
		zap.Bool("redis_鏡像", m.mirror != nil),
	)

	return m
}

// ScoreKey 計算分數快取鍵：商品 ID + 排序去重後的狀況集合
// 相同成員、不同插入順序的狀況集合必定產生同一個鍵。
func ScoreKey(productID string, conditions []string) string {
	seen := make(map[string]struct{}, len(conditions))
	deduped := make([]string, 0, len(conditions))
	for _, c := range conditions {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		deduped = append(deduped, c)
	}
	sort.Strings(deduped)
	return productID + "|" + strings.Join(deduped, ",")
}

// GetCatalog 讀取某預算級距的目錄快取
func (m *Manager) GetCatalog(tier string) ([]common.Product, bool) {
	if m == nil {
		return nil, false
	}
	m.catalogMu.RLock()
	entry, exists := m.catalog[tier]
	m.catalogMu.RUnlock()

	if !exists || time.Since(entry.storedAt) >= m.config.Cache.CatalogTTL {
		m.recordMiss()
		return nil, false
	}
	m.recordHit()
	return entry.products, true
}

// SetCatalog 寫入某預算級距的目錄快取
func (m *Manager) SetCatalog(tier string, products []common.Product) {
	if m == nil {
		return
	}
	m.catalogMu.Lock()
	m.catalog[tier] = catalogEntry{products: products, storedAt: time.Now()}
	m.catalogMu.Unlock()
}

// GetScore 讀取分數快取；本地未命中時嘗試 Redis 鏡像
func (m *Manager) GetScore(key string) (int, bool) {
	if m == nil {
		return 0, false
	}
	m.scoreMu.RLock()
	entry, exists := m.scores[key]
	m.scoreMu.RUnlock()

	if exists && time.Since(entry.storedAt) < m.config.Cache.ScoreTTL {
		m.recordHit()
		return entry.score, true
	}

	if m.mirror != nil {
		if score, ok := m.mirror.get(key); ok {
			m.recordHit()
			m.scoreMu.Lock()
			m.scores[key] = scoreEntry{score: score, storedAt: time.Now()}
			m.scoreMu.Unlock()
			return score, true
		}
	}

	m.recordMiss()
	return 0, false
}

// SetScore 寫入分數快取；鏡像開啟時同步寫入 Redis
func (m *Manager) SetScore(key string, score int) {
	if m == nil {
		return
	}
	m.scoreMu.Lock()
	if len(m.scores) >= m.config.Cache.MaxSize {
		evicted := m.evictExpiredScoresLocked()
		if evicted == 0 && len(m.scores) >= m.config.Cache.MaxSize {
			// 分數是可重算的衍生資料，滿了就放棄寫入
			m.scoreMu.Unlock()
			common.LogWarn("分數快取已滿，略過寫入", zap.Int("目前容量", len(m.scores)))
			return
		}
	}
	m.scores[key] = scoreEntry{score: score, storedAt: time.Now()}
	m.scoreMu.Unlock()

	if m.mirror != nil {
		m.mirror.set(key, score, m.config.Cache.ScoreTTL)
	}
}

// GetAnalysis 讀取膚況分析快取
func (m *Manager) GetAnalysis(key string) (common.SkinAnalysisResult, bool) {
	if m == nil {
		return common.SkinAnalysisResult{}, false
	}
	m.analysisMu.RLock()
	entry, exists := m.analysis[key]
	m.analysisMu.RUnlock()

	if !exists || time.Since(entry.storedAt) >= m.config.Cache.AnalysisTTL {
		m.recordMiss()
		return common.SkinAnalysisResult{}, false
	}
	m.recordHit()
	return entry.result, true
}

// SetAnalysis 寫入膚況分析快取
func (m *Manager) SetAnalysis(key string, result common.SkinAnalysisResult) {
	if m == nil {
		return
	}
	m.analysisMu.Lock()
	m.analysis[key] = analysisEntry{result: result, storedAt: time.Now()}
	m.analysisMu.Unlock()
}

// startCleanup 啟動清理過期緩存的協程
func (m *Manager) startCleanup() {
	ticker := time.NewTicker(m.config.Cache.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Cleanup()
		case <-m.done:
			return
		}
	}
}

// Cleanup 清理三個快取中所有過期的條目，回傳清理數量
func (m *Manager) Cleanup() int {
	if m == nil {
		return 0
	}
	now := time.Now()
	count := 0

	m.catalogMu.Lock()
	for key, entry := range m.catalog {
		if now.Sub(entry.storedAt) >= m.config.Cache.CatalogTTL {
			delete(m.catalog, key)
			count++
		}
	}
	m.catalogMu.Unlock()

	m.scoreMu.Lock()
	count += m.evictExpiredScoresLocked()
	m.scoreMu.Unlock()

	m.analysisMu.Lock()
	for key, entry := range m.analysis {
		if now.Sub(entry.storedAt) >= m.config.Cache.AnalysisTTL {
			delete(m.analysis, key)
			count++
		}
	}
	m.analysisMu.Unlock()

	if count > 0 {
		m.statsMu.Lock()
		m.stats.evictions += int64(count)
		evictions := m.stats.evictions
		m.statsMu.Unlock()

		common.LogInfo("清理過期快取條目",
			zap.Int("清理數量", count),
			zap.Int64("累計淘汰", evictions),
		)
	}

	return count
}

// evictExpiredScoresLocked 清理過期分數條目，呼叫端必須持有 scoreMu
func (m *Manager) evictExpiredScoresLocked() int {
	now := time.Now()
	count := 0
	for key, entry := range m.scores {
		if now.Sub(entry.storedAt) >= m.config.Cache.ScoreTTL {
			delete(m.scores, key)
			count++
		}
	}
	return count
}

// CatalogKeys 列舉目錄快取的鍵（營運監控用）
func (m *Manager) CatalogKeys() []string {
	if m == nil {
		return nil
	}
	m.catalogMu.RLock()
	defer m.catalogMu.RUnlock()
	return sortedKeys(m.catalog)
}

// ScoreKeys 列舉分數快取的鍵
func (m *Manager) ScoreKeys() []string {
	if m == nil {
		return nil
	}
	m.scoreMu.RLock()
	defer m.scoreMu.RUnlock()
	return sortedKeys(m.scores)
}

// AnalysisKeys 列舉分析快取的鍵
func (m *Manager) AnalysisKeys() []string {
	if m == nil {
		return nil
	}
	m.analysisMu.RLock()
	defer m.analysisMu.RUnlock()
	return sortedKeys(m.analysis)
}

func sortedKeys[V any](store map[string]V) []string {
	keys := make([]string, 0, len(store))
	for key := range store {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Stats 獲取緩存統計信息
func (m *Manager) Stats() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{"enabled": false}
	}

	m.catalogMu.RLock()
	catalogSize := len(m.catalog)
	m.catalogMu.RUnlock()
	m.scoreMu.RLock()
	scoreSize := len(m.scores)
	m.scoreMu.RUnlock()
	m.analysisMu.RLock()
	analysisSize := len(m.analysis)
	m.analysisMu.RUnlock()

	m.statsMu.Lock()
	defer m.statsMu.Unlock()

	hitRatio := 0.0
	if total := m.stats.hits + m.stats.misses; total > 0 {
		hitRatio = float64(m.stats.hits) / float64(total)
	}

	return map[string]interface{}{
		"enabled":       true,
		"catalog_size":  catalogSize,
		"score_size":    scoreSize,
		"analysis_size": analysisSize,
		"max_size":      m.config.Cache.MaxSize,
		"hits":          m.stats.hits,
		"misses":        m.stats.misses,
		"evictions":     m.stats.evictions,
		"hit_ratio":     hitRatio,
	}
}

func (m *Manager) recordHit() {
	m.statsMu.Lock()
	m.stats.hits++
	m.statsMu.Unlock()
}

func (m *Manager) recordMiss() {
	m.statsMu.Lock()
	m.stats.misses++
	m.statsMu.Unlock()
}

// Close 關閉緩存管理器
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	close(m.done)

	m.catalogMu.Lock()
	m.catalog = make(map[string]catalogEntry)
	m.catalogMu.Unlock()
	m.scoreMu.Lock()
	m.scores = make(map[string]scoreEntry)
	m.scoreMu.Unlock()
	m.analysisMu.Lock()
	m.analysis = make(map[string]analysisEntry)
	m.analysisMu.Unlock()

	if m.mirror != nil {
		_ = m.mirror.close()
	}

	m.statsMu.Lock()
	defer m.statsMu.Unlock()
	common.LogInfo("快取管理員已關閉",
		zap.Int64("命中次數", m.stats.hits),
		zap.Int64("未命中次數", m.stats.misses),
		zap.Int64("淘汰次數", m.stats.evictions),
	)
	return nil
}
