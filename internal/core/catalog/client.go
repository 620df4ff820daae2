package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"skincare-advisor/internal/infrastructure/config"
	"skincare-advisor/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client 商店目錄客戶端
type Client struct {
	config *config.Config
	client *resty.Client
}

// NewClient 創建商店目錄客戶端
func NewClient(cfg *config.Config) *Client {
	client := resty.New().
		SetBaseURL(cfg.Store.BaseURL).
		SetTimeout(cfg.Store.Timeout).
		SetHeader("X-Store-Access-Token", cfg.Store.AccessToken).
		SetHeader("Accept", "application/json")

	return &Client{
		config: cfg,
		client: client,
	}
}

// storeProduct 商店回傳的原始商品
// 商店的欄位命名不穩定：成分可能放在 ingredients 或 _ingredients，
// 描述可能放在 description 或 body_html。所有欄位回退在這裡一次解析完，
// 評分層只會看到統一後的 common.Product。
type storeProduct struct {
	ID               json.Number `json:"id"`
	Title            string      `json:"title"`
	Price            string      `json:"price"` // 十進位字串
	Description      string      `json:"description"`
	BodyHTML         string      `json:"body_html"`
	ShortDescription string      `json:"short_description"`
	Ingredients      string      `json:"ingredients"`
	AltIngredients   string      `json:"_ingredients"`
	Category         string      `json:"category"`
	Images           []struct {
		Src string `json:"src"`
	} `json:"images"`
}

type productsResponse struct {
	Products []storeProduct `json:"products"`
}

type categoriesResponse struct {
	Categories []common.Category `json:"categories"`
}

// FetchPublishedProducts 抓取已上架的完整商品目錄
// 不在內部重試；失敗直接回傳給呼叫端，既有快取條目保持不動。
func (c *Client) FetchPublishedProducts(ctx context.Context) ([]common.Product, error) {
	start := time.Now()

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(c.config.Store.PageSize)).
		SetQueryParam("published_status", "published").
		Get("/products.json")
	if err != nil {
		common.LogStoreFetch(0, time.Since(start), err)
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		err := fmt.Errorf("store API returned status %d", resp.StatusCode())
		common.LogStoreFetch(0, time.Since(start), err)
		return nil, err
	}

	var result productsResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse store response: %w", err)
	}

	products := make([]common.Product, 0, len(result.Products))
	for _, sp := range result.Products {
		products = append(products, normalizeProduct(sp))
	}

	common.LogStoreFetch(len(products), time.Since(start), nil)
	return products, nil
}

// FetchCategories 抓取商品分類
func (c *Client) FetchCategories(ctx context.Context) ([]common.Category, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		Get("/categories.json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("store API returned status %d", resp.StatusCode())
	}

	var result categoriesResponse
	if err := common.ParseJSONBytes(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("failed to parse categories response: %w", err)
	}
	return result.Categories, nil
}

// normalizeProduct 將商店商品統一成內部商品型別
func normalizeProduct(sp storeProduct) common.Product {
	ingredients := sp.Ingredients
	if strings.TrimSpace(ingredients) == "" {
		ingredients = sp.AltIngredients
	}

	description := sp.Description
	if strings.TrimSpace(description) == "" {
		description = sp.BodyHTML
	}

	price := 0.0
	if sp.Price != "" {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(sp.Price), 64)
		if err != nil {
			// 價格壞掉不該讓整批抓取失敗，留 0 並記錄
			common.LogWarn("商品價格無法解析",
				zap.String("商品", sp.ID.String()),
				zap.String("價格", sp.Price),
			)
		} else {
			price = parsed
		}
	}

	images := make([]string, 0, len(sp.Images))
	for _, img := range sp.Images {
		if img.Src != "" {
			images = append(images, img.Src)
		}
	}

	return common.Product{
		ID:               sp.ID.String(),
		Name:             sp.Title,
		Price:            price,
		RawIngredients:   ingredients,
		Description:      description,
		ShortDescription: sp.ShortDescription,
		Images:           images,
		Category:         sp.Category,
	}
}
