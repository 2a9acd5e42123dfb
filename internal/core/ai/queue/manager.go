package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/finnflow/lebensessenz-kursbot/internal/infrastructure/config"
	"github.com/finnflow/lebensessenz-kursbot/internal/pkg/common"
)

// Request 隊列中的補全請求
type Request struct {
	Context     context.Context
	Instruction string
	Input       string
	Result      chan Result
}

// Result 處理結果
type Result struct {
	Content string
	Error   error
}

// Status 隊列狀態
type Status struct {
	QueueLength    int `json:"queue_length"`
	ProcessedCount int `json:"processed_count"`
	MaxQueueSize   int `json:"max_queue_size"`
	Workers        int `json:"workers"`
}

// Manager 有界的補全請求隊列，限制同時打到上游模型的量。
// mu 保護 closed 與對 queue 的寫入端，Close 會關閉 channel，
// 入列必須持讀鎖才能保證不對已關閉的 channel 發送。
type Manager struct {
	config    *config.QueueConfig
	queue     chan *Request
	processed int64
	mu        sync.RWMutex
	closed    bool
}

// NewManager 創建新的隊列管理器
func NewManager(cfg *config.QueueConfig) *Manager {
	return &Manager{
		config: cfg,
		queue:  make(chan *Request, cfg.MaxSize),
	}
}

// GetQueue 獲取請求隊列，工作協程從這裡取件
func (m *Manager) GetQueue() <-chan *Request {
	return m.queue
}

// Enqueue 將請求加入隊列，滿了直接回錯不阻塞
func (m *Manager) Enqueue(ctx context.Context, instruction, input string) (chan Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, common.ErrQueueFull
	}

	req := &Request{
		Context:     ctx,
		Instruction: instruction,
		Input:       input,
		Result:      make(chan Result, 1),
	}

	select {
	case m.queue <- req:
		common.LogDebug("補全請求已入列",
			zap.Int("隊列長度", len(m.queue)),
			zap.Int("隊列上限", m.config.MaxSize),
		)
		return req.Result, nil
	default:
		return nil, common.ErrQueueFull
	}
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: int(atomic.LoadInt64(&m.processed)),
		MaxQueueSize:   m.config.MaxSize,
		Workers:        m.config.Workers,
	}
}

// IncrementProcessed 增加處理計數
func (m *Manager) IncrementProcessed() {
	atomic.AddInt64(&m.processed, 1)
}

// Close 關閉隊列管理器並結束工作協程。關閉後不可再 Enqueue。
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.queue)
}
