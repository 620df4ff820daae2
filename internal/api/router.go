package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"skincare-advisor/internal/api/handlers/health"
	recommendHandler "skincare-advisor/internal/api/handlers/recommend"
	"skincare-advisor/internal/api/middleware"
	"skincare-advisor/internal/core/cache"
	"skincare-advisor/internal/core/catalog"
	imageService "skincare-advisor/internal/core/image"
	"skincare-advisor/internal/core/ingredient"
	recommendService "skincare-advisor/internal/core/recommend"
	"skincare-advisor/internal/core/scoring"
	"skincare-advisor/internal/core/service"
	"skincare-advisor/internal/core/vision"
	"skincare-advisor/internal/infrastructure/config"
	"skincare-advisor/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 超時設置
	timeoutDuration = 120 * time.Second
	// 請求體大小限制 (10MB)
	maxBodySize = 10 << 20
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, cacheManager *cache.Manager) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 速率限制與請求去重
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	router.Use(middleware.Deduplication(cfg))

	common.LogInfo("Initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.Int("score_workers", cfg.Queue.Workers),
		zap.String("model", cfg.OpenRouter.Model),
		zap.String("store_base_url", cfg.Store.BaseURL),
		zap.Duration("timeout", timeoutDuration),
	)

	// 領域核心：成分知識庫、匹配器、評分引擎
	kb := ingredient.NewKnowledgeBase()
	matcher := ingredient.NewMatcher()
	engine := scoring.NewEngine(kb, matcher, cacheManager)

	// 商店目錄
	storeClient := catalog.NewClient(cfg)
	if storeClient == nil {
		common.LogError("Failed to initialize store client")
		return nil, fmt.Errorf("failed to initialize store client")
	}
	catalogSvc := catalog.NewService(storeClient, cacheManager)

	// AI 視覺分析
	aiService := service.NewOpenRouterService(cfg)
	if aiService == nil {
		common.LogError("Failed to initialize AI service")
		return nil, fmt.Errorf("failed to initialize AI service")
	}
	visionSvc := vision.NewService(aiService, kb, cacheManager)

	// 圖片服務
	imgSvc := imageService.NewService(cfg.Image.MaxSizeBytes)
	if imgSvc == nil {
		common.LogError("Failed to initialize image service")
		return nil, fmt.Errorf("failed to initialize image service")
	}

	// 推薦服務
	recommendSvc := recommendService.NewService(cfg, catalogSvc, engine, kb)
	if recommendSvc == nil {
		common.LogError("Failed to initialize recommend service")
		return nil, fmt.Errorf("failed to initialize recommend service")
	}

	common.LogInfo("Services initialized successfully",
		zap.Bool("ai_service_initialized", aiService != nil),
		zap.Bool("cache_manager_initialized", cacheManager != nil),
		zap.String("environment", cfg.App.Env),
	)

	// 全局中間件：設置超時和服務
	router.Use(func(c *gin.Context) {
		// 設置請求超時
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		// 設置配置與服務
		c.Set("config", cfg)
		c.Set("cache_manager", cacheManager)
		c.Set("recommend_service", recommendSvc)
		c.Set("vision_service", visionSvc)

		// 處理請求
		c.Next()

		// 檢查是否超時
		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  "REQUEST_TIMEOUT",
				"details": gin.H{
					"timeout": timeoutDuration.String(),
				},
			})
			c.Abort()
			return
		}
	})

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	{
		handler := recommendHandler.NewHandler(recommendSvc, catalogSvc, visionSvc, imgSvc, cacheManager, kb)

		// 商品推薦（可附臉部照片）
		api.POST("/recommend", handler.HandleRecommend)

		// 純膚況分析
		api.POST("/analyze", handler.HandleAnalyze)

		// 依預算級距查詢目錄
		api.GET("/products", handler.HandleProducts)

		// 快取監控
		api.GET("/cache/stats", handler.HandleCacheStats)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Bool("cache_manager_initialized", cacheManager != nil),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
