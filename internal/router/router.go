package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/config"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/handler"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/middleware"
)

// Version 服务版本
const Version = "1.0.0"

// Dependencies 路由依赖
type Dependencies struct {
	Config      *config.Config
	Downloader  handler.Downloader
	Disk        handler.DiskChecker
	Slots       handler.SlotStats
	Platforms   []string
	RedisClient *redis.Client // 可以为 nil
	Gatherer    prometheus.Gatherer
	Logger      *zap.Logger
}

// SetupRouter 设置路由
func SetupRouter(deps *Dependencies) (*gin.Engine, error) {
	switch deps.Config.Server.Mode {
	case gin.ReleaseMode, gin.DebugMode, gin.TestMode:
		gin.SetMode(deps.Config.Server.Mode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(deps.Config.Server.TrustedProxies); err != nil {
		return nil, err
	}
	r.SetHTMLTemplate(handler.LoadTemplates())

	page := handler.NewPage(deps.Platforms, deps.Config.Storage.MaxVideoSizeMB)

	// 全局中间件
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Recovery(deps.Logger, page.Reject))

	downloadHandler := handler.NewDownloadHandler(
		deps.Downloader,
		page,
		deps.Config.Server.BufferSize,
		deps.Logger,
	)
	healthHandler := handler.NewHealthHandler(
		deps.Disk,
		deps.Slots,
		deps.RedisClient,
		deps.Config.Storage.BasePath,
		Version,
	)

	// 运维接口
	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/live", healthHandler.Live)
	if deps.Gatherer != nil {
		r.GET("/metrics", handler.Metrics(deps.Gatherer))
	}

	// 页面
	limiter := middleware.NewGlobalLimiter(deps.Config.Limits.GlobalRPS, deps.Config.Limits.GlobalBurst)
	site := r.Group("/")
	site.Use(middleware.GlobalRateLimit(limiter, page.Reject))
	{
		site.GET("/", page.Index)
		site.POST("/download", downloadHandler.Download)
	}

	return r, nil
}
