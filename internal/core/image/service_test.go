package image

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngDataURI(t *testing.T) string {
	t.Helper()
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))
}

func TestProcessImageFromDataURI(t *testing.T) {
	svc := NewService(10 << 20)

	result, err := svc.ProcessImage(pngDataURI(t))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(result, "data:image/jpeg;base64,"), "輸出必須統一為 JPEG data URI")

	// 輸出必須是可解碼的 JPEG
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(result, "data:image/jpeg;base64,"))
	require.NoError(t, err)
	_, format, err := image.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestProcessImageFromURL(t *testing.T) {
	payload := pngBytes(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	svc := NewService(10 << 20)

	result, err := svc.ProcessImage(server.URL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result, "data:image/jpeg;base64,"))
}

func TestProcessImageURLDownloadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	svc := NewService(10 << 20)

	_, err := svc.ProcessImage(server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestProcessImageRejectsMalformedInput(t *testing.T) {
	svc := NewService(10 << 20)

	tests := []struct {
		name  string
		input string
	}{
		{"非 data URI 也非 URL", "just some text"},
		{"缺少 base64 內容", "data:image/png;base64"},
		{"壞掉的 base64", "data:image/png;base64,%%%not-base64%%%"},
		{"base64 內容不是圖片", "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("hello"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ProcessImage(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestProcessImageSizeLimit(t *testing.T) {
	svc := NewService(16)

	_, err := svc.ProcessImage(pngDataURI(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum limit")
}
