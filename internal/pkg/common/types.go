package common

import (
	"strings"
)

// Product 商品
// 商店回傳的各種欄位別名（ingredients/_ingredients、description/body_html）
// 在目錄層統一解析完成後才會產生這個型別，之後不再做欄位回退。
type Product struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Price            float64  `json:"price"`
	RawIngredients   string   `json:"raw_ingredients,omitempty"` // 原始成分字串，可能為空
	Description      string   `json:"description,omitempty"`
	ShortDescription string   `json:"short_description,omitempty"`
	Images           []string `json:"images,omitempty"`
	Category         string   `json:"category,omitempty"`
}

// HasIngredientData 是否帶有結構化成分資料
func (p Product) HasIngredientData() bool {
	return strings.TrimSpace(p.RawIngredients) != ""
}

// IngredientSource 取得成分來源文字：優先使用結構化成分欄位，否則回退到描述
func (p Product) IngredientSource() string {
	if p.HasIngredientData() {
		return p.RawIngredients
	}
	return p.Description
}

// ScoredProduct 帶分數的商品
type ScoredProduct struct {
	Product
	Score int `json:"score"` // 0-100 的匹配分數
}

// Category 商品分類
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SkinAnalysisResult 膚況分析結果
type SkinAnalysisResult struct {
	DetectedConditions []string `json:"detected_conditions"` // AI 檢測到的肌膚狀況
	SkinType           string   `json:"skin_type"`           // 膚質類型
	Confidence         float64  `json:"confidence"`          // 信心值 0-1
}

// LifestyleSuggestions 生活習慣建議
type LifestyleSuggestions struct {
	Suggestions []string `json:"suggestions"`
}

// RecommendRequest 推薦請求
type RecommendRequest struct {
	Conditions []string `json:"conditions"`
	Budget     string   `json:"budget"`
	Image      string   `json:"image,omitempty"` // base64 或 URL，可選
}

// RecommendResponse 推薦響應
type RecommendResponse struct {
	Products    []ScoredProduct       `json:"products"`
	Conditions  []string              `json:"conditions"` // 實際用於評分的狀況集合
	Budget      string                `json:"budget"`
	Analysis    *SkinAnalysisResult   `json:"analysis,omitempty"`
	Suggestions *LifestyleSuggestions `json:"suggestions,omitempty"`
	AnalysisID  string                `json:"analysis_id,omitempty"`
}

// FormatConditions 格式化狀況列表（用於提示詞）
func FormatConditions(conditions []string) string {
	if len(conditions) == 0 {
		return "無特定狀況"
	}
	return strings.Join(conditions, "、")
}
