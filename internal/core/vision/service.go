package vision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"skincare-advisor/internal/core/cache"
	"skincare-advisor/internal/core/ingredient"
	"skincare-advisor/internal/pkg/common"

	"go.uber.org/zap"
)

// Responder 視覺模型回應介面
type Responder interface {
	GenerateResponse(ctx context.Context, prompt string, imageData string) (string, error)
}

// Service 膚況視覺分析服務
// 臉部驗證、狀況檢測與生活建議都走同一個視覺模型。
// 檢測結果以圖片哈希為鍵快取，同一張照片在 TTL 內不重打模型。
type Service struct {
	responder Responder
	kb        *ingredient.KnowledgeBase
	cache     *cache.Manager
}

// NewService 創建膚況分析服務
func NewService(responder Responder, kb *ingredient.KnowledgeBase, cacheManager *cache.Manager) *Service {
	return &Service{
		responder: responder,
		kb:        kb,
		cache:     cacheManager,
	}
}

// IsHumanFace 判斷圖片是否為人臉照片
func (s *Service) IsHumanFace(ctx context.Context, imageData string) (bool, error) {
	prompt := `請判斷圖片是否為一張真實的人臉照片（不需要考慮可讀性，請返回最緊湊的 JSON 格式）。
		要求：
		1. 只判斷圖片中是否有清晰可見的人臉
		2. 插畫、動物、物品都不算人臉
		3. 所有欄位必須使用雙引號
		請以以下 JSON 格式返回：
		{"is_human_face": true}`

	content, err := s.responder.GenerateResponse(ctx, prompt, imageData)
	if err != nil {
		return false, fmt.Errorf("failed to validate face image: %w", err)
	}

	var result struct {
		IsHumanFace bool `json:"is_human_face"`
	}
	if err := common.ParseJSON(common.ExtractJSONObject(content), &result); err != nil {
		return false, fmt.Errorf("failed to parse face validation response: %w", err)
	}
	return result.IsHumanFace, nil
}

// DetectConditions 從臉部照片檢測肌膚狀況
// 檢測結果只會「加入」使用者自選的狀況集合，不會覆蓋
func (s *Service) DetectConditions(ctx context.Context, imageData string) (common.SkinAnalysisResult, error) {
	key := hashImage(imageData)
	if result, ok := s.cache.GetAnalysis(key); ok {
		common.LogCacheHit("analysis", key[:12])
		return result, nil
	}

	prompt := fmt.Sprintf(`請分析圖片中人臉的肌膚狀況（不需要考慮可讀性，請返回最緊湊的 JSON 格式）。
		要求：
		1. 只回報實際可見的肌膚狀況
		2. detected_conditions 只能使用以下識別符：%s
		3. skin_type 為 oily/dry/combination/normal 其中之一
		4. confidence 為 0 到 1 的小數
		5. 所有欄位必須使用雙引號
		請以以下 JSON 格式返回：
		{"detected_conditions":["acne"],"skin_type":"oily","confidence":0.8}`,
		strings.Join(s.kb.Conditions(), "、"))

	content, err := s.responder.GenerateResponse(ctx, prompt, imageData)
	if err != nil {
		return common.SkinAnalysisResult{}, fmt.Errorf("failed to detect skin conditions: %w", err)
	}

	var result common.SkinAnalysisResult
	if err := common.ParseJSON(common.ExtractJSONObject(content), &result); err != nil {
		return common.SkinAnalysisResult{}, fmt.Errorf("failed to parse skin analysis response: %w", err)
	}

	// 模型偶爾會回傳枚舉外的識別符，過濾掉
	supported := make([]string, 0, len(result.DetectedConditions))
	for _, condition := range result.DetectedConditions {
		condition = strings.ToLower(strings.TrimSpace(condition))
		if s.kb.IsSupported(condition) {
			supported = append(supported, condition)
		} else {
			common.LogDebug("丟棄模型回傳的未知狀況", zap.String("狀況", condition))
		}
	}
	result.DetectedConditions = supported

	if result.SkinType == "" {
		result.SkinType = "unknown"
	}

	s.cache.SetAnalysis(key, result)

	common.LogInfo("膚況檢測完成",
		zap.Strings("檢測到的狀況", result.DetectedConditions),
		zap.String("膚質", result.SkinType),
		zap.Float64("信心值", result.Confidence),
	)
	return result, nil
}

// GenerateSuggestions 根據狀況集合生成生活習慣建議
func (s *Service) GenerateSuggestions(ctx context.Context, conditions []string, skinType string) ([]string, error) {
	prompt := fmt.Sprintf(`使用者的肌膚狀況為：%s，膚質為：%s。
		請提供 3 到 5 條具體的日常生活習慣建議（並且用繁體中文回答）。
		要求：
		1. 建議要具體可執行，不要空泛
		2. 不要推薦特定品牌或商品
		3. 所有欄位必須使用雙引號
		請以以下 JSON 格式返回：
		{"suggestions":["建議一","建議二"]}`,
		common.FormatConditions(conditions), skinType)

	content, err := s.responder.GenerateResponse(ctx, prompt, "")
	if err != nil {
		return nil, fmt.Errorf("failed to generate suggestions: %w", err)
	}

	var result common.LifestyleSuggestions
	if err := common.ParseJSON(common.ExtractJSONObject(content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse suggestions response: %w", err)
	}
	return result.Suggestions, nil
}

// hashImage 計算圖片數據的 SHA-256 哈希值（分析快取鍵）
func hashImage(imageData string) string {
	hash := sha256.Sum256([]byte(imageData))
	return hex.EncodeToString(hash[:])
}
