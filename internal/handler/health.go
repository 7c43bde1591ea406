package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// DiskChecker 磁盘空间检查
type DiskChecker interface {
	Check(path string) (bool, float64, error)
}

// SlotStats 并发槽状态
type SlotStats interface {
	InFlight() int
	Max() int
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	disk        DiskChecker
	slots       SlotStats
	redisClient *redis.Client
	storagePath string
	startTime   time.Time
	version     string
}

// NewHealthHandler 创建健康检查处理器, redisClient 可以为 nil
func NewHealthHandler(disk DiskChecker, slots SlotStats, redisClient *redis.Client, storagePath, version string) *HealthHandler {
	return &HealthHandler{
		disk:        disk,
		slots:       slots,
		redisClient: redisClient,
		storagePath: storagePath,
		startTime:   time.Now(),
		version:     version,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       int64             `json:"uptime"`
	FreeMB       float64           `json:"free_mb"`
	InFlight     int               `json:"in_flight"`
	MaxInFlight  int               `json:"max_in_flight"`
	Dependencies map[string]string `json:"dependencies"`
}

// HealthCheck 健康检查
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dependencies := make(map[string]string)
	allHealthy := true

	ok, freeMB, err := h.disk.Check(h.storagePath)
	switch {
	case err != nil:
		dependencies["disk"] = "unhealthy"
		allHealthy = false
	case !ok:
		dependencies["disk"] = "low"
		allHealthy = false
	default:
		dependencies["disk"] = "healthy"
	}

	if h.redisClient != nil {
		if err := h.redisClient.Ping(ctx).Err(); err != nil {
			dependencies["redis"] = "unhealthy"
			allHealthy = false
		} else {
			dependencies["redis"] = "healthy"
		}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, HealthResponse{
		Status:       status,
		Version:      h.version,
		Uptime:       int64(time.Since(h.startTime).Seconds()),
		FreeMB:       freeMB,
		InFlight:     h.slots.InFlight(),
		MaxInFlight:  h.slots.Max(),
		Dependencies: dependencies,
	})
}

// Live 存活检查
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// Metrics Prometheus 指标
func Metrics(gatherer prometheus.Gatherer) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
