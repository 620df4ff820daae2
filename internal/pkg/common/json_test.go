package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	var v struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}
	require.NoError(t, ParseJSON(`{"name":"serum","score":0.8}`, &v))
	assert.Equal(t, "serum", v.Name)
	assert.Equal(t, 0.8, v.Score)
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	var v map[string]interface{}
	assert.Error(t, ParseJSON(`{"a":1}{"b":2}`, &v))
	assert.Error(t, ParseJSON(`{"a":1} extra`, &v))
}

func TestParseJSONStrict(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	assert.Error(t, ParseJSONStrict(`{"name":"x","unknown":true}`, &v))
	assert.NoError(t, ParseJSON(`{"name":"x","unknown":true}`, &v))
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"純 JSON", `{"a":1}`, `{"a":1}`},
		{"前後有說明文字", `分析結果如下：{"a":1} 以上。`, `{"a":1}`},
		{"markdown 包裹", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"沒有物件時原樣返回", "no braces here", "no braces here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractJSONObject(tt.input))
		})
	}
}

func TestQuoteJSONKeys(t *testing.T) {
	assert.Equal(t, `{"a": 1, "b": "x"}`, QuoteJSONKeys(`{a: 1, b: "x"}`))
	// 已加引號的鍵不動
	assert.Equal(t, `{"a": 1}`, QuoteJSONKeys(`{"a": 1}`))
}

func TestProductIngredientSource(t *testing.T) {
	withIngredients := Product{
		RawIngredients: "Aqua, Niacinamide",
		Description:    "A gentle serum with retinol.",
	}
	assert.True(t, withIngredients.HasIngredientData())
	assert.Equal(t, "Aqua, Niacinamide", withIngredients.IngredientSource())

	// 成分欄位為空白時回退到描述
	withoutIngredients := Product{
		RawIngredients: "   ",
		Description:    "A gentle serum with retinol.",
	}
	assert.False(t, withoutIngredients.HasIngredientData())
	assert.Equal(t, "A gentle serum with retinol.", withoutIngredients.IngredientSource())
}

func TestFormatConditions(t *testing.T) {
	assert.Equal(t, "無特定狀況", FormatConditions(nil))
	assert.Equal(t, "acne、oily", FormatConditions([]string{"acne", "oily"}))
}
