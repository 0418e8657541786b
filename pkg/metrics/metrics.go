// Package metrics 提供 Prometheus 指标：HTTP 请求与上传、令牌、相册等领域计数.
//
// Example:
//
//	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
//		log.Fatal(err)
//	}
//	metrics.RegisterRoutes(cfg.Metrics, engine)
//
//	metrics.UploadsTotal.WithLabelValues("v2", metrics.ResultCreated).Inc()
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 注册 /debug/pprof 到 DefaultServeMux
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/staticmd/pkg/configs"
)

// 上传结果标签.
const (
	ResultCreated   = "created"
	ResultDuplicate = "duplicate"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
)

var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 正在处理的请求数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of in-flight requests",
		},
	)

	// UploadsTotal 按入口与结果统计的文件上传.
	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: configs.AppName,
			Name:      "uploads_total",
			Help:      "Uploaded files by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)

	// TokenValidations 令牌校验结果（ok / invalid）.
	TokenValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: configs.AppName,
			Name:      "token_validations_total",
			Help:      "Upload token validations by result",
		},
		[]string{"result"},
	)

	// GalleriesTotal 相册创建与复用（created / reused）.
	GalleriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: configs.AppName,
			Name:      "galleries_total",
			Help:      "Galleries created or reused",
		},
		[]string{"outcome"},
	)

	// LinkLookups 链接解析缓存命中情况（hit / miss / not_found）.
	LinkLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: configs.AppName,
			Name:      "link_lookups_total",
			Help:      "Link resolutions by cache outcome",
		},
		[]string{"outcome"},
	)

	registry = prometheus.NewRegistry()
	initOnce sync.Once
)

// InitMetrics 注册指标，重复调用只生效一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	initOnce.Do(func() {
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		registry.MustRegister(
			RequestCounter, RequestDuration, ActiveConnections,
			UploadsTotal, TokenValidations, GalleriesTotal, LinkLookups,
		)
	})

	return nil
}

// RegisterRoutes 挂载 /metrics 与可选的 /debug/pprof.
// gorm prometheus 插件注册在默认注册表，两者合并输出.
func RegisterRoutes(config configs.MetricsConfig, engine *gin.Engine) {
	if !config.Enabled {
		return
	}

	gatherers := prometheus.Gatherers{registry, prometheus.DefaultGatherer}
	engine.GET(config.Path, gin.WrapH(promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})))

	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
