package recommend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"skincare-advisor/internal/core/catalog"
	"skincare-advisor/internal/core/ingredient"
	"skincare-advisor/internal/core/scoring"
	"skincare-advisor/internal/infrastructure/config"
	"skincare-advisor/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if err := common.InitLogger("error"); err != nil {
		fmt.Println("Failed to initialize logger:", err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

type fakeFetcher struct {
	products []common.Product
	err      error
}

func (f *fakeFetcher) FetchPublishedProducts(ctx context.Context) ([]common.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func newTestService(products []common.Product, fetchErr error) *Service {
	cfg := &config.Config{
		Queue:     config.QueueConfig{Workers: 4},
		Recommend: config.RecommendConfig{ScoreThreshold: 40, MaxResults: 12},
	}
	kb := ingredient.NewKnowledgeBase()
	engine := scoring.NewEngine(kb, ingredient.NewMatcher(), nil)
	catalogSvc := catalog.NewService(&fakeFetcher{products: products, err: fetchErr}, nil)
	return NewService(cfg, catalogSvc, engine, kb)
}

// strongProduct 對 acne 得 51 分（三個有益成分都在前五名）
func strongProduct(id, name string, price float64) common.Product {
	return common.Product{
		ID:             id,
		Name:           name,
		Price:          price,
		RawIngredients: "Salicylic Acid, Niacinamide, Retinol",
	}
}

func TestRecommendFiltersByThreshold(t *testing.T) {
	svc := newTestService([]common.Product{
		strongProduct("1", "Clear Serum", 25),
		{ID: "2", Name: "Plain Lotion", Price: 30, RawIngredients: "Glycerin, Aqua"},
		{ID: "3", Name: "Mild Gel", Price: 28, RawIngredients: "Niacinamide, Aqua, Carbomer"},
	}, nil)

	results, err := svc.Recommend(context.Background(), []string{"acne"}, "mid")
	require.NoError(t, err)
	require.Len(t, results, 1, "低於門檻的商品必須被濾掉")
	assert.Equal(t, "1", results[0].ID)
	assert.Equal(t, 51, results[0].Score)
}

func TestRecommendFiltersByBudget(t *testing.T) {
	svc := newTestService([]common.Product{
		strongProduct("1", "Clear Serum", 25),
		strongProduct("2", "Luxury Serum", 500),
		strongProduct("3", "Budget Serum", 9.99),
	}, nil)

	results, err := svc.Recommend(context.Background(), []string{"acne"}, "mid")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "1", results[0].ID)
}

func TestRecommendSortsByScoreDescending(t *testing.T) {
	better := strongProduct("2", "Clear Serum", 30)
	better.Description = "Targets acne breakouts." // 描述提及 +15 → 66

	svc := newTestService([]common.Product{
		strongProduct("1", "Daily Serum", 25),
		better,
	}, nil)

	results, err := svc.Recommend(context.Background(), []string{"acne"}, "mid")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "2", results[0].ID)
	assert.Equal(t, 66, results[0].Score)
	assert.Equal(t, "1", results[1].ID)
	assert.Equal(t, 51, results[1].Score)
}

func TestRecommendStableTiesAndTruncation(t *testing.T) {
	products := make([]common.Product, 0, 20)
	for i := 0; i < 20; i++ {
		products = append(products, strongProduct(fmt.Sprintf("%d", i), "Serum", 25))
	}
	svc := newTestService(products, nil)

	results, err := svc.Recommend(context.Background(), []string{"acne"}, "mid")
	require.NoError(t, err)
	require.Len(t, results, 12, "結果必須截斷在上限")

	// 同分時維持目錄順序
	for i, sp := range results {
		assert.Equal(t, fmt.Sprintf("%d", i), sp.ID)
	}
}

func TestRecommendInvalidBudget(t *testing.T) {
	svc := newTestService(nil, nil)

	_, err := svc.Recommend(context.Background(), []string{"acne"}, "platinum")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidBudget)
}

func TestRecommendFetchErrorPropagates(t *testing.T) {
	svc := newTestService(nil, errors.New("store down"))

	_, err := svc.Recommend(context.Background(), []string{"acne"}, "mid")
	require.Error(t, err)
}

func TestRecommendEmptyCatalog(t *testing.T) {
	svc := newTestService(nil, nil)

	results, err := svc.Recommend(context.Background(), []string{"acne"}, "mid")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMergeConditions(t *testing.T) {
	svc := newTestService(nil, nil)

	tests := []struct {
		name     string
		user     []string
		detected []string
		expected []string
	}{
		{"聯集去重", []string{"acne", "oily"}, []string{"oily", "redness"}, []string{"acne", "oily", "redness"}},
		{"使用者優先於檢測", []string{"dryness"}, []string{"acne"}, []string{"dryness", "acne"}},
		{"過濾未知識別符", []string{"acne", "wrinkles"}, []string{"pores"}, []string{"acne"}},
		{"兩邊皆空", nil, nil, []string{}},
		{"只有檢測結果", nil, []string{"redness", "redness"}, []string{"redness"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, svc.MergeConditions(tt.user, tt.detected))
		})
	}
}

func TestRankProducts(t *testing.T) {
	scored := []common.ScoredProduct{
		{Product: common.Product{ID: "1"}, Score: 40}, // 門檻含
		{Product: common.Product{ID: "2"}, Score: 39},
		{Product: common.Product{ID: "3"}, Score: 80},
		{Product: common.Product{ID: "4"}, Score: 40},
	}

	ranked := RankProducts(scored, 40, 12)
	require.Len(t, ranked, 3)
	assert.Equal(t, "3", ranked[0].ID)
	assert.Equal(t, "1", ranked[1].ID)
	assert.Equal(t, "4", ranked[2].ID)
}

func TestRankProductsNoLimit(t *testing.T) {
	scored := make([]common.ScoredProduct, 0, 30)
	for i := 0; i < 30; i++ {
		scored = append(scored, common.ScoredProduct{
			Product: common.Product{ID: fmt.Sprintf("%d", i)},
			Score:   50,
		})
	}

	assert.Len(t, RankProducts(scored, 40, 0), 30)
	assert.Len(t, RankProducts(scored, 40, 12), 12)
}

func TestScoreAllSerialWhenSingleWorker(t *testing.T) {
	svc := newTestService(nil, nil)
	svc.config.Queue.Workers = 1

	products := []common.Product{
		strongProduct("1", "Serum A", 25),
		{ID: "2", Name: "Plain", Price: 30, RawIngredients: "Aqua"},
	}

	scored := svc.scoreAll(products, []string{"acne"})
	require.Len(t, scored, 2)
	assert.Equal(t, 51, scored[0].Score)
	assert.Equal(t, 0, scored[1].Score)
}
