package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/config"
)

// filepathTemplate 下载并移动完成后打印最终路径
const filepathTemplate = "after_move:filepath"

// FetchRequest 单次下载参数
type FetchRequest struct {
	URL            string
	OutputTemplate string // 完整输出模板, 包含目录
	CookieFile     string // 不存在时忽略
}

// Executor yt-dlp 执行器
type Executor struct {
	format          string
	userAgent       string
	retries         int
	fragmentRetries int
	timeout         time.Duration
	logger          *zap.Logger
}

// NewExecutor 创建 yt-dlp 执行器
func NewExecutor(cfg *config.YtDLPConfig, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		format:          cfg.Format,
		userAgent:       cfg.UserAgent,
		retries:         cfg.Retries,
		fragmentRetries: cfg.FragmentRetries,
		timeout:         cfg.Timeout,
		logger:          logger.Named("ytdlp"),
	}
}

// Install 确保 yt-dlp 可执行文件可用
func Install(ctx context.Context) error {
	_, err := ytdlp.Install(ctx, nil)
	return err
}

// Fetch 下载 URL 到输出模板, 返回最终文件路径
func (e *Executor) Fetch(ctx context.Context, req *FetchRequest) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	cmd := e.buildCommand(req)

	e.logger.Info("starting download",
		zap.String("url", req.URL),
		zap.String("output", req.OutputTemplate))
	start := time.Now()

	result, err := cmd.Run(ctx, req.URL)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			e.logger.Warn("download timeout", zap.String("url", req.URL), zap.Duration("timeout", e.timeout))
			return "", fmt.Errorf("%w after %v", ErrTimeout, e.timeout)
		}

		stderr := ""
		if result != nil {
			stderr = result.Stderr
		}
		e.logger.Error("yt-dlp failed",
			zap.String("url", req.URL),
			zap.Error(err),
			zap.String("stderr", stderr))

		if msg := lastErrorLine(stderr); msg != "" {
			return "", fmt.Errorf("%w: %s", MapError(stderr), msg)
		}
		return "", fmt.Errorf("%w: %v", MapError(err.Error()), err)
	}

	path := parseOutputPath(result.Stdout)
	if path == "" {
		return "", ErrNoOutput
	}

	e.logger.Info("download completed",
		zap.String("url", req.URL),
		zap.String("file", path),
		zap.Duration("elapsed", time.Since(start)))
	return path, nil
}

// buildCommand 构建下载命令
func (e *Executor) buildCommand(req *FetchRequest) *ytdlp.Command {
	cmd := ytdlp.New().
		Output(req.OutputTemplate).
		Format(e.format).
		Retries(strconv.Itoa(e.retries)).
		FragmentRetries(strconv.Itoa(e.fragmentRetries)).
		NoPlaylist().
		NoMtime(). // 文件时间保持为下载时刻, 避免被清理调度器当作残留
		Print(filepathTemplate)

	if e.userAgent != "" {
		cmd = cmd.AddHeaders("User-Agent:" + e.userAgent)
	}

	if cookie := resolveCookieFile(req.CookieFile); cookie != "" {
		cmd = cmd.Cookies(cookie)
		e.logger.Debug("using cookie file", zap.String("path", cookie))
	}

	return cmd
}

// resolveCookieFile cookie 文件存在时才返回路径
func resolveCookieFile(path string) string {
	if path == "" {
		return ""
	}
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		return path
	}
	return ""
}

// parseOutputPath 从 --print 输出中取最后一个非空行作为文件路径
func parseOutputPath(stdout string) string {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
