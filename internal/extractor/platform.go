package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/config"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/storage"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/ytdlp"
)

// Fetcher 底层下载实现
type Fetcher interface {
	Fetch(ctx context.Context, req *ytdlp.FetchRequest) (string, error)
}

// PlatformExtractor 基于 yt-dlp 的平台下载器
type PlatformExtractor struct {
	name       string
	dir        string
	template   string
	cookieFile string
	fetcher    Fetcher
	files      *storage.FileManager
	now        func() time.Time
	logger     *zap.Logger
}

// NewPlatformExtractor 创建平台下载器
func NewPlatformExtractor(
	cfg config.PlatformConfig,
	dir string,
	cookieFile string,
	fetcher Fetcher,
	files *storage.FileManager,
	logger *zap.Logger,
) *PlatformExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.UseCookies {
		cookieFile = ""
	}
	return &PlatformExtractor{
		name:       cfg.Name,
		dir:        dir,
		template:   cfg.OutputTemplate,
		cookieFile: cookieFile,
		fetcher:    fetcher,
		files:      files,
		now:        time.Now,
		logger:     logger.Named(cfg.Name),
	}
}

// Platform 平台名称
func (e *PlatformExtractor) Platform() string {
	return e.name
}

// NewScope 每个请求在平台目录下拥有独立子目录
func (e *PlatformExtractor) NewScope(rawURL string) (storage.Scope, error) {
	return e.files.NewUniqueScope(e.dir, rawURL, e.now())
}

// Fetch 下载到 scope 目录
func (e *PlatformExtractor) Fetch(ctx context.Context, rawURL string, scope storage.Scope) (*Artifact, error) {
	req := &ytdlp.FetchRequest{
		URL:            rawURL,
		OutputTemplate: filepath.Join(scope.Dir(), e.template),
		CookieFile:     e.cookieFile,
	}

	path, err := e.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
		path = filepath.Join(scope.Dir(), path)
	}

	e.logger.Debug("fetched", zap.String("url", rawURL), zap.String("file", path))
	return &Artifact{
		Platform: e.name,
		FilePath: path,
		Scope:    scope,
	}, nil
}

// Build 根据平台配置构建规则表, 未启用的平台跳过
func Build(
	platforms []config.PlatformConfig,
	storageCfg *config.StorageConfig,
	cookieFile string,
	fetcher Fetcher,
	files *storage.FileManager,
	logger *zap.Logger,
) (*Registry, error) {
	r := NewRegistry()
	for _, p := range platforms {
		if !p.Enabled {
			continue
		}
		dir := storageCfg.PlatformDir(p.Name)
		if err := files.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", p.Name, err)
		}
		r.Register(Rule{
			Name:      p.Name,
			Match:     HostMatcher(p.Domains...),
			Extractor: NewPlatformExtractor(p, dir, cookieFile, fetcher, files, logger),
		})
	}
	return r, nil
}
