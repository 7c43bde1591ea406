package admission

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimiter 按客户端的滑动窗口限流器
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	limit   int
	window  time.Duration
	logger  *zap.Logger
}

// NewRateLimiter 创建限流器, limit 为窗口内允许的请求数
func NewRateLimiter(limit int, window time.Duration, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		windows: make(map[string][]time.Time),
		limit:   limit,
		window:  window,
		logger:  logger.Named("ratelimiter"),
	}
}

// Admit 判断请求是否放行, 放行时记录本次时间
func (rl *RateLimiter) Admit(clientID string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	recent := rl.prune(rl.windows[clientID], now)
	if len(recent) >= rl.limit {
		rl.windows[clientID] = recent
		rl.logger.Debug("rate limit exceeded",
			zap.String("client", clientID),
			zap.Int("in_window", len(recent)))
		return false
	}

	rl.windows[clientID] = append(recent, now)
	return true
}

// Remaining 窗口内剩余可用次数
func (rl *RateLimiter) Remaining(clientID string, now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	n := rl.limit - len(rl.prune(rl.windows[clientID], now))
	if n < 0 {
		return 0
	}
	return n
}

// prune 去掉窗口外的时间戳, 时间戳按追加顺序递增
func (rl *RateLimiter) prune(stamps []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(stamps) && now.Sub(stamps[i]) >= rl.window {
		i++
	}
	if i == 0 {
		return stamps
	}
	kept := make([]time.Time, len(stamps)-i)
	copy(kept, stamps[i:])
	return kept
}

// Cleanup 删除窗口已空的客户端, 返回删除数量
func (rl *RateLimiter) Cleanup(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for id, stamps := range rl.windows {
		recent := rl.prune(stamps, now)
		if len(recent) == 0 {
			delete(rl.windows, id)
			removed++
			continue
		}
		rl.windows[id] = recent
	}
	return removed
}

// Len 当前跟踪的客户端数量
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// StartJanitor 定期清理空闲客户端, ctx 取消后退出
func (rl *RateLimiter) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := rl.Cleanup(now); n > 0 {
				rl.logger.Debug("idle clients removed", zap.Int("count", n))
			}
		}
	}
}
