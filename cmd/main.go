package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/admission"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/cleanup"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/config"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/events"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/extractor"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/logger"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/metrics"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/router"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/service"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/storage"
	"github.com/mohithkrishnaa-dev/socialmediadownloader/internal/ytdlp"
)

func main() {
	configPath := pflag.StringP("config", "c", "config/dev.yaml", "path to config file")
	pflag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. 初始化日志
	zapLogger, err := logger.New(&cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting downloader",
		zap.Int("port", cfg.Server.Port),
		zap.String("mode", cfg.Server.Mode),
		zap.String("storage", cfg.Storage.BasePath))

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("Server exited with error", zap.Error(err))
	}
	zapLogger.Info("Server stopped")
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. yt-dlp
	if cfg.YtDLP.AutoInstall {
		installCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		err := ytdlp.Install(installCtx)
		cancel()
		if err != nil {
			zapLogger.Warn("Failed to install yt-dlp, falling back to PATH", zap.Error(err))
		} else {
			zapLogger.Info("yt-dlp ready")
		}
	}
	executor := ytdlp.NewExecutor(&cfg.YtDLP, zapLogger)

	// 4. 存储
	fileManager := storage.NewFileManager(cfg.Storage.BasePath, zapLogger)
	if err := fileManager.EnsureDir(cfg.Storage.BasePath); err != nil {
		return err
	}
	diskGuard := storage.NewDiskGuard(cfg.Storage.MinFreeMB, nil)

	// 5. 平台规则
	registry, err := extractor.Build(cfg.Platforms, &cfg.Storage, cfg.YtDLP.CookieFile, executor, fileManager, zapLogger)
	if err != nil {
		return err
	}
	zapLogger.Info("Platforms registered", zap.Strings("platforms", registry.Platforms()))

	// 6. Redis 事件, 未配置时不发布
	var redisClient *redis.Client
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			zapLogger.Warn("Failed to connect to Redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			zapLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		}
		cancel()
		publisher = events.NewRedisPublisher(redisClient, cfg.Redis.Channel)
	}

	// 7. 指标
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 8. 准入控制与下载服务
	limiter := admission.NewRateLimiter(cfg.Limits.RateLimit, cfg.Limits.RateWindow, zapLogger)
	slots := admission.NewConcurrencySlot(cfg.Limits.MaxConcurrent)
	svc := service.NewDownloaderService(
		limiter,
		slots,
		diskGuard,
		registry,
		fileManager,
		publisher,
		m,
		service.Options{
			StoragePath:       cfg.Storage.BasePath,
			MaxVideoSizeBytes: cfg.Storage.MaxVideoSizeBytes(),
		},
		zapLogger,
	)

	// 9. 路由
	r, err := router.SetupRouter(&router.Dependencies{
		Config:      cfg,
		Downloader:  svc,
		Disk:        diskGuard,
		Slots:       slots,
		Platforms:   registry.Platforms(),
		RedisClient: redisClient,
		Gatherer:    reg,
		Logger:      zapLogger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:           cfg.Server.Addr(),
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	dirs := make([]string, 0, len(cfg.Platforms))
	for _, p := range cfg.Platforms {
		dirs = append(dirs, cfg.Storage.PlatformDir(p.Name))
	}
	scheduler := cleanup.NewScheduler(&cfg.Cleanup, fileManager, dirs, zapLogger)

	// 10. 启动
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zapLogger.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		limiter.StartJanitor(gctx, cfg.Limits.JanitorInterval)
		return nil
	})

	g.Go(func() error {
		scheduler.Start(gctx)
		return nil
	})

	// 11. 优雅关闭
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zapLogger.Warn("Server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}
