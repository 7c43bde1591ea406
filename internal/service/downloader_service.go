package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/events"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/extractor"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/metrics"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/models"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/storage"
	"go.uber.org/zap"
)

const (
	bytesPerMB = 1024 * 1024
	// 事件发布最长等待时间, 期间请求仍占用并发槽
	defaultPublishTimeout = 500 * time.Millisecond
)

// Limiter 按客户端限流
type Limiter interface {
	Admit(clientID string, now time.Time) bool
}

// Slots 非阻塞并发槽
type Slots interface {
	TryAcquire() (func(), bool)
}

// DiskChecker 磁盘空间检查
type DiskChecker interface {
	Check(path string) (bool, float64, error)
	FloorMB() float64
}

// Dispatcher URL 到提取器的分发
type Dispatcher interface {
	Dispatch(rawURL string) (extractor.Extractor, error)
}

// DeliverFunc 把下载结果交给调用方, 返回后临时文件即被清理
type DeliverFunc func(art *extractor.Artifact, filename string) error

// Options 下载服务参数
type Options struct {
	StoragePath       string
	MaxVideoSizeBytes int64
}

// DownloaderService 下载编排
type DownloaderService struct {
	limiter   Limiter
	slots     Slots
	disk      DiskChecker
	registry  Dispatcher
	files     *storage.FileManager
	publisher events.Publisher
	metrics   *metrics.Metrics
	opts      Options
	logger    *zap.Logger
	now       func() time.Time

	publishTimeout time.Duration
}

// NewDownloaderService 创建下载服务
func NewDownloaderService(
	limiter Limiter,
	slots Slots,
	disk DiskChecker,
	registry Dispatcher,
	files *storage.FileManager,
	publisher events.Publisher,
	m *metrics.Metrics,
	opts Options,
	logger *zap.Logger,
) *DownloaderService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &DownloaderService{
		limiter:   limiter,
		slots:     slots,
		disk:      disk,
		registry:  registry,
		files:     files,
		publisher: publisher,
		metrics:   m,
		opts:      opts,
		logger:    logger,
		now:       time.Now,

		publishTimeout: defaultPublishTimeout,
	}
}

// Download 执行一次完整的下载流程.
// 任何出错路径上, 已占用的并发槽和已创建的临时目录都会在返回前释放.
func (s *DownloaderService) Download(ctx context.Context, req *models.DownloadRequest, deliver DeliverFunc) error {
	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		return s.reject(req, newError(ErrEmptyInput, "No URL provided", nil))
	}

	if !s.limiter.Admit(req.ClientID, s.now()) {
		return s.reject(req, newError(ErrRateLimited, "Rate limit exceeded. Please try again later.", nil))
	}

	release, ok := s.slots.TryAcquire()
	if !ok {
		return s.reject(req, newError(ErrBusy, "Too many downloads in progress. Please try again later.", nil))
	}
	defer release()

	s.metrics.InFlight.Inc()
	defer s.metrics.InFlight.Dec()

	enough, freeMB, err := s.disk.Check(s.opts.StoragePath)
	if err != nil {
		return s.reject(req, newError(ErrDiskCheckFailed,
			"Unable to check available disk space. Please try again later.", err))
	}
	if !enough {
		de := newError(ErrInsufficientSpace, fmt.Sprintf(
			"Insufficient disk space. Only %.2f MB free. Need at least %d MB.",
			freeMB, int(s.disk.FloorMB())), nil)
		de.Actual = freeMB
		de.Limit = s.disk.FloorMB()
		return s.reject(req, de)
	}

	ext, err := s.registry.Dispatch(rawURL)
	if err != nil {
		return s.reject(req, newError(ErrUnsupportedPlatform, "Unsupported platform", err))
	}
	platform := ext.Platform()

	scope, err := ext.NewScope(rawURL)
	if err != nil {
		return s.fail(ctx, req, platform, newError(ErrStorageUnavailable,
			"Unable to prepare download storage. Please try again later.", err))
	}
	defer s.cleanup(req, platform, scope)

	s.publish(ctx, &events.DownloadEvent{
		RequestID: req.RequestID,
		Platform:  platform,
		URL:       rawURL,
		Status:    events.StatusStarted,
	})

	s.logger.Info("Download started",
		zap.String("request_id", req.RequestID),
		zap.String("platform", platform),
		zap.String("url", rawURL),
		zap.String("dir", scope.Dir()))

	start := s.now()
	art, err := ext.Fetch(ctx, rawURL, scope)
	s.metrics.ObserveFetch(platform, s.now().Sub(start))
	if err != nil {
		return s.fail(ctx, req, platform, newError(ErrExtractionFailed, err.Error(), err))
	}

	if art.FilePath == "" || !s.files.FileExists(art.FilePath) {
		return s.fail(ctx, req, platform, newError(ErrMissingOutput,
			fmt.Sprintf("Downloaded file not found: %s", filepath.Base(art.FilePath)), nil))
	}

	size, err := s.files.GetFileSize(art.FilePath)
	if err != nil {
		return s.fail(ctx, req, platform, newError(ErrMissingOutput,
			fmt.Sprintf("Downloaded file not found: %s", filepath.Base(art.FilePath)), err))
	}
	art.SizeBytes = size
	s.metrics.ArtifactBytes.Observe(float64(size))

	if s.opts.MaxVideoSizeBytes > 0 && size > s.opts.MaxVideoSizeBytes {
		sizeMB := float64(size) / bytesPerMB
		limitMB := s.opts.MaxVideoSizeBytes / bytesPerMB
		de := newError(ErrOversize, fmt.Sprintf(
			"Video size (%.2f MB) exceeds maximum allowed size (%d MB)", sizeMB, limitMB), nil)
		de.Actual = sizeMB
		de.Limit = float64(limitMB)
		return s.fail(ctx, req, platform, de)
	}

	filename := storage.SecureFilename(filepath.Base(art.FilePath))
	if err := deliver(art, filename); err != nil {
		return s.fail(ctx, req, platform, newError(ErrDeliveryFailed, "Failed to send file", err))
	}

	s.metrics.Downloads.WithLabelValues(platform, "success").Inc()
	s.publish(ctx, &events.DownloadEvent{
		RequestID: req.RequestID,
		Platform:  platform,
		URL:       rawURL,
		Status:    events.StatusCompleted,
		SizeBytes: size,
	})

	s.logger.Info("Download completed",
		zap.String("request_id", req.RequestID),
		zap.String("platform", platform),
		zap.String("filename", filename),
		zap.Int64("size", size))

	return nil
}

// reject 记录在提取开始前被拒绝的请求
func (s *DownloaderService) reject(req *models.DownloadRequest, de *Error) error {
	s.metrics.Rejections.WithLabelValues(de.Code()).Inc()
	s.logger.Warn("Download rejected",
		zap.String("request_id", req.RequestID),
		zap.String("client", req.ClientID),
		zap.String("reason", de.Code()),
		zap.Error(de))
	return de
}

// fail 记录提取阶段及之后的失败
func (s *DownloaderService) fail(ctx context.Context, req *models.DownloadRequest, platform string, de *Error) error {
	s.metrics.Rejections.WithLabelValues(de.Code()).Inc()
	s.metrics.Downloads.WithLabelValues(platform, de.Code()).Inc()
	s.publish(ctx, &events.DownloadEvent{
		RequestID: req.RequestID,
		Platform:  platform,
		URL:       strings.TrimSpace(req.URL),
		Status:    events.StatusFailed,
		Error:     de.Message,
	})
	s.logger.Error("Download failed",
		zap.String("request_id", req.RequestID),
		zap.String("platform", platform),
		zap.String("reason", de.Code()),
		zap.Error(de))
	return de
}

func (s *DownloaderService) cleanup(req *models.DownloadRequest, platform string, scope storage.Scope) {
	if err := scope.Cleanup(); err != nil {
		s.metrics.CleanupFailures.Inc()
		s.logger.Warn("Failed to clean up download scope",
			zap.String("request_id", req.RequestID),
			zap.String("platform", platform),
			zap.String("dir", scope.Dir()),
			zap.Error(err))
	}
}

// publish 事件发布失败只记录日志, 不影响下载
func (s *DownloaderService) publish(ctx context.Context, ev *events.DownloadEvent) {
	ev.At = s.now().UTC()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Debug("Failed to publish download event",
			zap.String("request_id", ev.RequestID),
			zap.String("status", string(ev.Status)),
			zap.Error(err))
	}
}

// IsKind 判断错误类别
func IsKind(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}
