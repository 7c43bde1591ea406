package extractor

import (
	"context"
	"errors"

	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/storage"
)

// ErrNoMatch 没有平台规则匹配该 URL
var ErrNoMatch = errors.New("unsupported platform")

// Artifact 下载产物, 由下载服务在请求期间独占
type Artifact struct {
	Platform  string
	FilePath  string
	Scope     storage.Scope
	SizeBytes int64
}

// Extractor 平台下载能力
type Extractor interface {
	// Platform 平台名称
	Platform() string
	// NewScope 为本次请求准备输出位置
	NewScope(rawURL string) (storage.Scope, error)
	// Fetch 下载到 scope 中
	Fetch(ctx context.Context, rawURL string, scope storage.Scope) (*Artifact, error)
}
