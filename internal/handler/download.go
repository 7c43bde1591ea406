package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/extractor"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/middleware"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/models"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/service"
)

// Downloader 下载编排
type Downloader interface {
	Download(ctx context.Context, req *models.DownloadRequest, deliver service.DeliverFunc) error
}

// DownloadHandler 下载处理器
type DownloadHandler struct {
	svc        Downloader
	page       *Page
	bufferSize int
	logger     *zap.Logger
}

// NewDownloadHandler 创建下载处理器
func NewDownloadHandler(svc Downloader, page *Page, bufferSize int, logger *zap.Logger) *DownloadHandler {
	if bufferSize <= 0 {
		bufferSize = 32 * 1024
	}
	return &DownloadHandler{
		svc:        svc,
		page:       page,
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Download 下载视频并以附件返回
func (h *DownloadHandler) Download(c *gin.Context) {
	req := &models.DownloadRequest{
		URL:       c.PostForm("url"),
		ClientID:  c.ClientIP(),
		RequestID: middleware.GetRequestID(c),
	}

	err := h.svc.Download(c.Request.Context(), req, func(art *extractor.Artifact, filename string) error {
		return h.stream(c, art.FilePath, filename)
	})
	if err == nil {
		return
	}

	// 已开始写响应体, 无法再渲染错误页
	if c.Writer.Written() {
		h.logger.Warn("Download interrupted after response started",
			zap.String("request_id", req.RequestID),
			zap.Error(err))
		c.Abort()
		return
	}

	header := c.Writer.Header()
	for _, k := range attachmentHeaders {
		header.Del(k)
	}
	h.page.render(c, StatusCode(err), service.UserMessage(err), req.URL)
}

var attachmentHeaders = []string{
	"Content-Description",
	"Content-Transfer-Encoding",
	"Content-Disposition",
	"Content-Type",
	"Content-Length",
}

// stream 以固定缓冲区流式发送文件
func (h *DownloadHandler) stream(c *gin.Context, filePath, filename string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Header("Content-Type", "video/mp4")
	c.Header("Content-Length", fmt.Sprintf("%d", info.Size()))
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Status(http.StatusOK)

	buffer := make([]byte, h.bufferSize)
	for {
		n, err := file.Read(buffer)
		if n > 0 {
			if _, werr := c.Writer.Write(buffer[:n]); werr != nil {
				return fmt.Errorf("failed to write response: %w", werr)
			}
			c.Writer.Flush()
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to read file: %w", err)
		}
	}
}

// StatusCode 下载错误对应的 HTTP 状态码
func StatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyInput),
		errors.Is(err, service.ErrUnsupportedPlatform):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrBusy),
		errors.Is(err, service.ErrDiskCheckFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrInsufficientSpace):
		return http.StatusInsufficientStorage
	case errors.Is(err, service.ErrExtractionFailed):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrOversize):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
