package vision

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"skincare-advisor/internal/core/cache"
	"skincare-advisor/internal/core/ingredient"
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

// fakeResponder 固定回應的視覺模型
type fakeResponder struct {
	calls    int
	response string
	err      error
}

func (f *fakeResponder) GenerateResponse(ctx context.Context, prompt string, imageData string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func newVisionService(responder Responder, cacheManager *cache.Manager) *Service {
	return NewService(responder, ingredient.NewKnowledgeBase(), cacheManager)
}

func newAnalysisCacheConfig() *config.Config {
	return &config.Config{
		Cache: config.CacheConfig{
			Enabled:         true,
			MaxSize:         100,
			CatalogTTL:      10 * time.Minute,
			ScoreTTL:        5 * time.Minute,
			AnalysisTTL:     10 * time.Minute,
			CleanupInterval: time.Hour,
		},
	}
}

func TestIsHumanFace(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expected bool
	}{
		{"人臉", `{"is_human_face": true}`, true},
		{"非人臉", `{"is_human_face": false}`, false},
		{"模型在 JSON 外加了文字", "這是分析結果：{\"is_human_face\": true} 謝謝", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newVisionService(&fakeResponder{response: tt.response}, nil)
			isFace, err := svc.IsHumanFace(context.Background(), "imagedata")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, isFace)
		})
	}
}

func TestIsHumanFaceResponderError(t *testing.T) {
	svc := newVisionService(&fakeResponder{err: errors.New("model timeout")}, nil)

	_, err := svc.IsHumanFace(context.Background(), "imagedata")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model timeout")
}

func TestIsHumanFaceMalformedResponse(t *testing.T) {
	svc := newVisionService(&fakeResponder{response: "not json at all"}, nil)

	_, err := svc.IsHumanFace(context.Background(), "imagedata")
	require.Error(t, err)
}

func TestDetectConditions(t *testing.T) {
	responder := &fakeResponder{
		response: `{"detected_conditions":["acne","Redness "],"skin_type":"oily","confidence":0.82}`,
	}
	svc := newVisionService(responder, nil)

	result, err := svc.DetectConditions(context.Background(), "imagedata")
	require.NoError(t, err)
	// 識別符被小寫化與去空白後驗證
	assert.Equal(t, []string{"acne", "redness"}, result.DetectedConditions)
	assert.Equal(t, "oily", result.SkinType)
	assert.Equal(t, 0.82, result.Confidence)
}

func TestDetectConditionsDropsUnknown(t *testing.T) {
	responder := &fakeResponder{
		response: `{"detected_conditions":["acne","wrinkles","pores"],"skin_type":"dry","confidence":0.6}`,
	}
	svc := newVisionService(responder, nil)

	result, err := svc.DetectConditions(context.Background(), "imagedata")
	require.NoError(t, err)
	assert.Equal(t, []string{"acne"}, result.DetectedConditions)
}

func TestDetectConditionsDefaultSkinType(t *testing.T) {
	responder := &fakeResponder{
		response: `{"detected_conditions":["acne"],"confidence":0.5}`,
	}
	svc := newVisionService(responder, nil)

	result, err := svc.DetectConditions(context.Background(), "imagedata")
	require.NoError(t, err)
	assert.Equal(t, "unknown", result.SkinType)
}

func TestDetectConditionsCachedByImageHash(t *testing.T) {
	manager := cache.NewManager(newAnalysisCacheConfig())
	require.NotNil(t, manager)
	defer manager.Close()

	responder := &fakeResponder{
		response: `{"detected_conditions":["acne"],"skin_type":"oily","confidence":0.9}`,
	}
	svc := newVisionService(responder, manager)

	first, err := svc.DetectConditions(context.Background(), "imagedata")
	require.NoError(t, err)

	second, err := svc.DetectConditions(context.Background(), "imagedata")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, responder.calls, "同一張圖片在 TTL 內不應重打模型")

	// 不同圖片是不同的快取鍵
	_, err = svc.DetectConditions(context.Background(), "otherimage")
	require.NoError(t, err)
	assert.Equal(t, 2, responder.calls)
}

func TestGenerateSuggestions(t *testing.T) {
	responder := &fakeResponder{
		response: `{"suggestions":["睡滿八小時","每天防曬","避免用手摸臉"]}`,
	}
	svc := newVisionService(responder, nil)

	suggestions, err := svc.GenerateSuggestions(context.Background(), []string{"acne"}, "oily")
	require.NoError(t, err)
	assert.Len(t, suggestions, 3)
}

func TestGenerateSuggestionsResponderError(t *testing.T) {
	svc := newVisionService(&fakeResponder{err: errors.New("model down")}, nil)

	_, err := svc.GenerateSuggestions(context.Background(), []string{"acne"}, "oily")
	require.Error(t, err)
}
