package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Status 下载状态
type Status string

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// DownloadEvent 下载生命周期事件
type DownloadEvent struct {
	RequestID string    `json:"request_id"`
	Platform  string    `json:"platform,omitempty"`
	URL       string    `json:"url"`
	Status    Status    `json:"status"`
	SizeBytes int64     `json:"size_bytes,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher 事件发布器
type Publisher interface {
	Publish(ctx context.Context, ev *DownloadEvent) error
}

// RedisPublisher 通过 Redis PUBLISH 发布事件
type RedisPublisher struct {
	redis   *redis.Client
	channel string
}

// NewRedisPublisher 创建 Redis 事件发布器
func NewRedisPublisher(redisClient *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{
		redis:   redisClient,
		channel: channel,
	}
}

// Publish 发布事件
func (p *RedisPublisher) Publish(ctx context.Context, ev *DownloadEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal download event: %w", err)
	}

	if err := p.redis.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish download event: %w", err)
	}
	return nil
}

// NopPublisher 未配置 Redis 时使用
type NopPublisher struct{}

// Publish 什么也不做
func (NopPublisher) Publish(context.Context, *DownloadEvent) error { return nil }
