package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 下载服务指标
type Metrics struct {
	Rejections      *prometheus.CounterVec
	Downloads       *prometheus.CounterVec
	InFlight        prometheus.Gauge
	Duration        *prometheus.HistogramVec
	ArtifactBytes   prometheus.Histogram
	CleanupFailures prometheus.Counter
}

// New 创建并注册指标
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "downloader",
			Name:      "rejections_total",
			Help:      "Requests rejected before or during download, by reason.",
		}, []string{"reason"}),
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "downloader",
			Name:      "downloads_total",
			Help:      "Downloads that reached the extractor, by platform and outcome.",
		}, []string{"platform", "outcome"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "downloader",
			Name:      "in_flight",
			Help:      "Downloads currently holding a concurrency slot.",
		}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "downloader",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent in the extractor.",
			Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"platform"}),
		ArtifactBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "downloader",
			Name:      "artifact_bytes",
			Help:      "Size of fetched artifacts.",
			Buckets:   prometheus.ExponentialBuckets(1<<20, 2, 8),
		}),
		CleanupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "downloader",
			Name:      "cleanup_failures_total",
			Help:      "Scope cleanups that returned an error.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Rejections, m.Downloads, m.InFlight, m.Duration, m.ArtifactBytes, m.CleanupFailures)
	}
	return m
}

// ObserveFetch 记录一次下载耗时
func (m *Metrics) ObserveFetch(platform string, elapsed time.Duration) {
	m.Duration.WithLabelValues(platform).Observe(elapsed.Seconds())
}
