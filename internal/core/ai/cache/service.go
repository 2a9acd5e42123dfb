package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/finnflow/lebensessenz-kursbot/internal/infrastructure/config"
	"github.com/finnflow/lebensessenz-kursbot/internal/pkg/common"
)

// Service Redis 快取層。跨行程共用的第二層補全快取，
// 記憶體層未命中時才會查到這裡。
type Service struct {
	client *redis.Client
	config *config.CacheConfig
}

// NewService 創建 Redis 快取服務。未啟用時回傳空殼，
// Get/Set 都直接短路。
func NewService(cfg *config.CacheConfig) (*Service, error) {
	if !cfg.RedisEnabled {
		return &Service{config: cfg}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Service{
		client: client,
		config: cfg,
	}, nil
}

// Get 獲取快取的補全結果
func (s *Service) Get(ctx context.Context, instruction, input string) (string, error) {
	if !s.config.RedisEnabled || s.client == nil {
		return "", common.ErrCacheDisabled
	}

	value, err := s.client.Get(ctx, s.generateKey(instruction, input)).Result()
	if err != nil {
		if err == redis.Nil {
			common.LogCacheMiss("redis")
			return "", common.ErrCacheDisabled
		}
		return "", fmt.Errorf("failed to get cache: %w", err)
	}

	common.LogCacheHit("redis")
	return value, nil
}

// Set 設置快取的補全結果
func (s *Service) Set(ctx context.Context, instruction, input, value string) error {
	if !s.config.RedisEnabled || s.client == nil {
		return nil
	}

	if err := s.client.Set(ctx, s.generateKey(instruction, input), value, s.config.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// generateKey 生成快取鍵
func (s *Service) generateKey(instruction, input string) string {
	hash := sha256.Sum256([]byte(instruction + "\x00" + input))
	return "kursbot:completion:" + hex.EncodeToString(hash[:])
}

// Close 關閉 Redis 連線
func (s *Service) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
