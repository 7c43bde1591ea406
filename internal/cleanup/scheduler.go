package cleanup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/config"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/storage"
)

// Scheduler 清理调度器
// 正常情况下每个请求结束时已清理自己的文件, 这里只回收进程崩溃等情况留下的残留
type Scheduler struct {
	fileManager *storage.FileManager
	dirs        []string
	interval    time.Duration
	maxAge      time.Duration
	enabled     bool
	logger      *zap.Logger
	now         func() time.Time
}

// Result 一次清理的结果
type Result struct {
	Deleted int
	Failed  int
}

// NewScheduler 创建清理调度器, dirs 为各平台下载目录
func NewScheduler(cfg *config.CleanupConfig, fileManager *storage.FileManager, dirs []string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		fileManager: fileManager,
		dirs:        dirs,
		interval:    cfg.Interval,
		maxAge:      cfg.MaxAge,
		enabled:     cfg.IsEnabled(),
		logger:      logger,
		now:         time.Now,
	}
}

// Start 启动清理调度器, 阻塞到 ctx 取消
func (s *Scheduler) Start(ctx context.Context) {
	if !s.enabled || s.interval <= 0 {
		s.logger.Info("Cleanup scheduler is disabled")
		return
	}

	s.logger.Info("Starting cleanup scheduler",
		zap.Duration("interval", s.interval),
		zap.Duration("max_age", s.maxAge))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// 启动时先执行一次
	s.Sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			s.logger.Info("Cleanup scheduler stopped")
			return
		}
	}
}

// Sweep 删除超过 maxAge 的残留文件和目录
func (s *Scheduler) Sweep(ctx context.Context) Result {
	start := s.now()
	cutoff := start.Add(-s.maxAge)
	var res Result

	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("Failed to read download directory", zap.String("dir", dir), zap.Error(err))
				res.Failed++
			}
			continue
		}

		for _, entry := range entries {
			select {
			case <-ctx.Done():
				s.logger.Info("Context cancelled, stopping cleanup")
				return res
			default:
			}

			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				err = s.fileManager.DeleteDir(path)
			} else {
				err = s.fileManager.DeleteFile(path)
			}
			if err != nil {
				s.logger.Warn("Failed to remove stale entry", zap.String("path", path), zap.Error(err))
				res.Failed++
				continue
			}

			res.Deleted++
			s.logger.Debug("Cleaned up stale entry",
				zap.String("path", path),
				zap.Bool("partial", storage.IsPartialFile(entry.Name())))
		}
	}

	if res.Deleted > 0 || res.Failed > 0 {
		s.logger.Info("Cleanup completed",
			zap.Duration("elapsed", s.now().Sub(start)),
			zap.Int("deleted", res.Deleted),
			zap.Int("failed", res.Failed))
	}
	return res
}
