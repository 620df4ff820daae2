package image

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"time"

	_ "image/gif" // 支援 GIF
	_ "image/png" // 支援 PNG

	_ "golang.org/x/image/webp" // 支援 WebP
)

// Service 圖片處理服務
// 臉部照片送到視覺模型前先在這裡驗證格式與大小，並統一轉成 JPEG
type Service struct {
	maxSizeBytes int64
	httpClient   *http.Client
}

// NewService 創建新的圖片處理服務
func NewService(maxSizeBytes int64) *Service {
	return &Service{
		maxSizeBytes: maxSizeBytes,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ProcessImage 處理圖片：取得原始位元組、驗證、轉 JPEG、回傳 data URI
func (s *Service) ProcessImage(imageData string) (string, error) {
	raw, err := s.loadBytes(imageData)
	if err != nil {
		return "", err
	}

	img, err := s.decode(raw)
	if err != nil {
		return "", err
	}

	// 統一轉換為 JPEG
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("failed to encode image as JPEG: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	return fmt.Sprintf("data:image/jpeg;base64,%s", encoded), nil
}

// loadBytes 取得圖片原始位元組：支援 URL 與 base64 data URI
func (s *Service) loadBytes(imageData string) ([]byte, error) {
	if strings.HasPrefix(imageData, "http://") || strings.HasPrefix(imageData, "https://") {
		resp, err := s.httpClient.Get(imageData)
		if err != nil {
			return nil, fmt.Errorf("failed to download image: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to download image: status code %d", resp.StatusCode)
		}

		raw, err := io.ReadAll(io.LimitReader(resp.Body, s.maxSizeBytes+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read image data: %w", err)
		}
		if int64(len(raw)) > s.maxSizeBytes {
			return nil, fmt.Errorf("image size exceeds maximum limit of %d bytes", s.maxSizeBytes)
		}
		return raw, nil
	}

	if !strings.HasPrefix(imageData, "data:image/") {
		return nil, fmt.Errorf("invalid image data format")
	}

	parts := strings.Split(imageData, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid base64 data format")
	}

	raw, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 data: %w", err)
	}
	if int64(len(raw)) > s.maxSizeBytes {
		return nil, fmt.Errorf("image size exceeds maximum limit of %d bytes", s.maxSizeBytes)
	}
	return raw, nil
}

// decode 解碼圖片並確認格式在支援清單內
func (s *Service) decode(raw []byte) (image.Image, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if !isSupportedFormat(format) {
		return nil, fmt.Errorf("unsupported image format: %s", format)
	}
	return img, nil
}

// isSupportedFormat 檢查圖片格式是否支援
func isSupportedFormat(format string) bool {
	supportedFormats := map[string]bool{
		"jpeg": true,
		"jpg":  true,
		"png":  true,
		"gif":  true,
		"webp": true,
	}
	return supportedFormats[format]
}
