package service

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/finnflow/lebensessenz-kursbot/internal/core/ai/cache"
	"github.com/finnflow/lebensessenz-kursbot/internal/core/ai/queue"
	openrouter "github.com/finnflow/lebensessenz-kursbot/internal/core/service"
	"github.com/finnflow/lebensessenz-kursbot/internal/core/trennkost"
	"github.com/finnflow/lebensessenz-kursbot/internal/infrastructure/config"
	"github.com/finnflow/lebensessenz-kursbot/internal/pkg/common"
)

// Service 模型能力服務。對外只有 Completion 一個方法：
// 記憶體快取 → Redis 快取 → 有界隊列 → OpenRouter。
// 正規化流程透過 ExtractFunc/ClassifyFunc 取得回呼，
// 不直接依賴這一層。
type Service struct {
	config       *config.Config
	openRouter   *openrouter.OpenRouterService
	cacheManager *cache.Manager
	redisCache   *cache.Service
	queueManager *queue.Manager
	wg           sync.WaitGroup
}

// NewService 創建模型能力服務並啟動工作協程
func NewService(cfg *config.Config) (*Service, error) {
	redisCache, err := cache.NewService(&cfg.Cache)
	if err != nil {
		return nil, err
	}

	s := &Service{
		config:       cfg,
		openRouter:   openrouter.NewOpenRouterService(cfg),
		cacheManager: cache.NewManager(&cfg.Cache),
		redisCache:   redisCache,
		queueManager: queue.NewManager(&cfg.Queue),
	}

	for i := 0; i < cfg.Queue.Workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	common.LogInfo("模型能力服務已啟動",
		zap.Int("工作協程", cfg.Queue.Workers),
		zap.String("模型", cfg.OpenRouter.Model),
		zap.String("API金鑰", config.MaskAPIKey(cfg.OpenRouter.APIKey)),
	)
	return s, nil
}

// worker 從隊列取補全請求送給 OpenRouter
func (s *Service) worker(id int) {
	defer s.wg.Done()

	for req := range s.queueManager.GetQueue() {
		content, err := s.openRouter.Complete(req.Context, req.Instruction, req.Input)
		s.queueManager.IncrementProcessed()
		req.Result <- queue.Result{Content: content, Error: err}

		if err != nil {
			common.LogWarn("補全請求失敗",
				zap.Int("工作協程", id),
				zap.Error(err),
			)
		}
	}
}

// Completion 帶快取的補全。兩層快取都未命中才入列打模型，
// 成功後回填兩層。
func (s *Service) Completion(ctx context.Context, instruction, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", common.ErrEmptyInput
	}

	if s.cacheManager != nil {
		if value, err := s.cacheManager.Get(instruction, input); err == nil {
			return value, nil
		}
	}

	if value, err := s.redisCache.Get(ctx, instruction, input); err == nil {
		return value, nil
	}

	resultCh, err := s.queueManager.Enqueue(ctx, instruction, input)
	if err != nil {
		return "", err
	}

	select {
	case result := <-resultCh:
		if result.Error != nil {
			return "", result.Error
		}
		if s.cacheManager != nil {
			_ = s.cacheManager.Set(instruction, input, result.Content)
		}
		_ = s.redisCache.Set(ctx, instruction, input, result.Content)
		return result.Content, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Capabilities 組出正規化流程要的回呼集合
func (s *Service) Capabilities() *trennkost.Capabilities {
	return &trennkost.Capabilities{
		Extract:  s.Completion,
		Classify: s.Completion,
	}
}

// QueueStatus 回傳隊列狀態
func (s *Service) QueueStatus() *queue.Status {
	return s.queueManager.GetQueueStatus()
}

// CacheStats 回傳記憶體快取統計，快取停用時回傳 nil
func (s *Service) CacheStats() map[string]interface{} {
	if s.cacheManager == nil {
		return nil
	}
	return s.cacheManager.GetStats()
}

// Close 關閉服務並等工作協程結束，順手把運行統計寫進日誌
func (s *Service) Close() error {
	st := s.QueueStatus()
	common.LogInfo("模型能力服務關閉",
		zap.Int("已處理請求", st.ProcessedCount),
		zap.Int("剩餘隊列長度", st.QueueLength),
		zap.Any("快取統計", s.CacheStats()),
	)
	s.queueManager.Close()
	s.wg.Wait()
	if s.cacheManager != nil {
		_ = s.cacheManager.Close()
	}
	return s.redisCache.Close()
}
