package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"skincare-advisor/internal/pkg/common"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// scoreMirror 分數快取的 Redis 鏡像
// 本地 TTL map 永遠是權威來源；鏡像只在多實例部署時減少重算，
// 讀寫失敗一律降級為未命中，不影響請求。
type scoreMirror struct {
	client *redis.Client
}

const scoreKeyPrefix = "advisor:score:"

// newScoreMirror 建立並驗證 Redis 連線
func newScoreMirror(addr string) (*scoreMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &scoreMirror{client: client}, nil
}

// get 讀取鏡像中的分數
func (s *scoreMirror) get(key string) (int, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	val, err := s.client.Get(ctx, scoreKeyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			common.LogWarn("Redis 分數讀取失敗", zap.Error(err))
		}
		return 0, false
	}

	score, err := strconv.Atoi(val)
	if err != nil {
		common.LogWarn("Redis 分數格式錯誤", zap.String("鍵", key), zap.String("值", val))
		return 0, false
	}
	return score, true
}

// set 寫入分數到鏡像
func (s *scoreMirror) set(key string, score int, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := s.client.Set(ctx, scoreKeyPrefix+key, strconv.Itoa(score), ttl).Err(); err != nil {
		common.LogWarn("Redis 分數寫入失敗", zap.Error(err))
	}
}

func (s *scoreMirror) close() error {
	return s.client.Close()
}
