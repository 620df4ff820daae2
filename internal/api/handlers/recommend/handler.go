package recommend

import (
	"fmt"
	"net/http"
	"strings"

	"skincare-advisor/internal/core/cache"
	"skincare-advisor/internal/core/catalog"
	imageService "skincare-advisor/internal/core/image"
	"skincare-advisor/internal/core/ingredient"
	recommendService "skincare-advisor/internal/core/recommend"
	"skincare-advisor/internal/core/vision"
	"skincare-advisor/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 推薦相關的 HTTP 處理器
type Handler struct {
	recommendSvc *recommendService.Service
	catalogSvc   *catalog.Service
	visionSvc    *vision.Service
	imageSvc     *imageService.Service
	cacheManager *cache.Manager
	kb           *ingredient.KnowledgeBase
}

// NewHandler 創建推薦處理器
func NewHandler(
	recommendSvc *recommendService.Service,
	catalogSvc *catalog.Service,
	visionSvc *vision.Service,
	imageSvc *imageService.Service,
	cacheManager *cache.Manager,
	kb *ingredient.KnowledgeBase,
) *Handler {
	return &Handler{
		recommendSvc: recommendSvc,
		catalogSvc:   catalogSvc,
		visionSvc:    visionSvc,
		imageSvc:     imageSvc,
		cacheManager: cacheManager,
		kb:           kb,
	}
}

// HandleRecommend 商品推薦端點
// 驗證 → （可選）臉部照片分析 → 狀況聯集 → 推薦
func (h *Handler) HandleRecommend(c *gin.Context) {
	var req common.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	// 輸入驗證：未知識別符在進入核心之前就擋掉
	if err := h.validateConditions(req.Conditions); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"code":  common.ErrInvalidCondition.Code,
		})
		return
	}
	if _, ok := catalog.ParseTier(req.Budget); !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   fmt.Sprintf("unsupported budget tier: %q", req.Budget),
			"code":    common.ErrInvalidBudget.Code,
			"allowed": catalog.TierNames(),
		})
		return
	}

	// 可選的臉部照片分析
	var analysis *common.SkinAnalysisResult
	var suggestions *common.LifestyleSuggestions
	detected := []string{}
	if req.Image != "" {
		processedImage, err := h.imageSvc.ProcessImage(req.Image)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
				"code":  common.ErrInvalidImageFormat.Code,
			})
			return
		}

		isFace, err := h.visionSvc.IsHumanFace(c.Request.Context(), processedImage)
		if err != nil {
			// AI 失敗降級：照片分析整段跳過，僅用使用者自選狀況
			common.LogWarn("臉部驗證失敗，跳過照片分析", zap.Error(err))
		} else if !isFace {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": common.ErrNotHumanFace.Message,
				"code":  common.ErrNotHumanFace.Code,
			})
			return
		} else {
			analysis, suggestions, detected = h.analyze(c, processedImage, req.Conditions)
		}
	}

	conditions := h.recommendSvc.MergeConditions(req.Conditions, detected)

	products, err := h.recommendSvc.Recommend(c.Request.Context(), conditions, req.Budget)
	if err != nil {
		common.LogError("推薦流程失敗", zap.Error(err), zap.String("級距", req.Budget))
		c.JSON(http.StatusBadGateway, gin.H{
			"error": common.ErrStoreUnavailable.Message,
			"code":  common.ErrStoreUnavailable.Code,
		})
		return
	}

	c.JSON(http.StatusOK, common.RecommendResponse{
		Products:    products,
		Conditions:  conditions,
		Budget:      req.Budget,
		Analysis:    analysis,
		Suggestions: suggestions,
		AnalysisID:  common.GenerateUUID(),
	})
}

// analyze 執行膚況檢測與建議生成，失敗一律降級為空結果
func (h *Handler) analyze(c *gin.Context, processedImage string, userConditions []string) (*common.SkinAnalysisResult, *common.LifestyleSuggestions, []string) {
	result, err := h.visionSvc.DetectConditions(c.Request.Context(), processedImage)
	if err != nil {
		common.LogWarn("膚況檢測失敗，改用使用者自選狀況", zap.Error(err))
		return nil, nil, nil
	}

	merged := h.recommendSvc.MergeConditions(userConditions, result.DetectedConditions)
	items, err := h.visionSvc.GenerateSuggestions(c.Request.Context(), merged, result.SkinType)
	if err != nil {
		common.LogWarn("生活建議生成失敗", zap.Error(err))
		return &result, nil, result.DetectedConditions
	}

	return &result, &common.LifestyleSuggestions{Suggestions: items}, result.DetectedConditions
}

// HandleAnalyze 純膚況分析端點（不做目錄與評分工作）
func (h *Handler) HandleAnalyze(c *gin.Context) {
	var req struct {
		Image string `json:"image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "image is required",
			"code":  common.ErrCodeInvalidRequest,
		})
		return
	}

	processedImage, err := h.imageSvc.ProcessImage(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"code":  common.ErrInvalidImageFormat.Code,
		})
		return
	}

	isFace, err := h.visionSvc.IsHumanFace(c.Request.Context(), processedImage)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": common.ErrAIServiceError.Message,
			"code":  common.ErrAIServiceError.Code,
		})
		return
	}
	if !isFace {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": common.ErrNotHumanFace.Message,
			"code":  common.ErrNotHumanFace.Code,
		})
		return
	}

	result, err := h.visionSvc.DetectConditions(c.Request.Context(), processedImage)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": common.ErrAIServiceError.Message,
			"code":  common.ErrAIServiceError.Code,
		})
		return
	}

	// 建議失敗不影響分析結果
	var suggestions *common.LifestyleSuggestions
	if items, err := h.visionSvc.GenerateSuggestions(c.Request.Context(), result.DetectedConditions, result.SkinType); err == nil {
		suggestions = &common.LifestyleSuggestions{Suggestions: items}
	} else {
		common.LogWarn("生活建議生成失敗", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"analysis":    result,
		"suggestions": suggestions,
		"analysis_id": common.GenerateUUID(),
	})
}

// HandleProducts 依預算級距回傳快取後的目錄
func (h *Handler) HandleProducts(c *gin.Context) {
	tierName := c.Query("budget")
	tier, ok := catalog.ParseTier(tierName)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   fmt.Sprintf("unsupported budget tier: %q", tierName),
			"code":    common.ErrInvalidBudget.Code,
			"allowed": catalog.TierNames(),
		})
		return
	}

	products, err := h.catalogSvc.Resolve(c.Request.Context(), tierName)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": common.ErrStoreUnavailable.Message,
			"code":  common.ErrStoreUnavailable.Code,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"budget":   tierName,
		"products": catalog.FilterByTier(products, tier),
	})
}

// HandleCacheStats 快取監控端點：各快取的大小、鍵列舉與命中統計
func (h *Handler) HandleCacheStats(c *gin.Context) {
	if h.cacheManager == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": common.ErrCacheDisabled.Message,
			"code":  common.ErrCacheDisabled.Code,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":         h.cacheManager.Stats(),
		"catalog_keys":  h.cacheManager.CatalogKeys(),
		"score_keys":    h.cacheManager.ScoreKeys(),
		"analysis_keys": h.cacheManager.AnalysisKeys(),
	})
}

// validateConditions 驗證狀況識別符都在支援的枚舉內
func (h *Handler) validateConditions(conditions []string) error {
	for _, condition := range conditions {
		if !h.kb.IsSupported(condition) {
			return common.NewValidationError(fmt.Sprintf(
				"unsupported condition: %q (supported: %s)",
				condition, strings.Join(h.kb.Conditions(), ", ")))
		}
	}
	return nil
}
