// Package app 提供应用程序的初始化和配置功能.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/handle"
	"github.com/yeisme/staticmd/pkg/internal/jobs"
	"github.com/yeisme/staticmd/pkg/internal/router"
	"github.com/yeisme/staticmd/pkg/internal/service"
	"github.com/yeisme/staticmd/pkg/internal/storage"
	"github.com/yeisme/staticmd/pkg/log"
	"github.com/yeisme/staticmd/pkg/metrics"
	"github.com/yeisme/staticmd/pkg/middleware"
	"github.com/yeisme/staticmd/pkg/scheduler"
	"github.com/yeisme/staticmd/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

// App 一个完整的服务实例：HTTP 引擎、存储、定时任务与事件消费者.
type App struct {
	Engine *gin.Engine

	config  *configs.AppConfig
	manager *storage.Manager
	svc     *service.Services
	sched   *scheduler.Scheduler
}

// NewApp 加载配置并初始化全部依赖. 出错时已打开的资源会被关闭.
func NewApp(ctx context.Context, configPath string) (*App, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	config := configs.GetConfig()

	if err := tracing.InitTracer(config.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(config.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	manager, err := storage.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	svc := service.FromManager(manager, config)

	sched, err := scheduler.NewScheduler(nil)
	if err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("init scheduler: %w", err)
	}

	runner := jobs.NewRunner(svc, config)
	if err := jobs.RegisterCronJobs(sched, runner); err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("register jobs: %w", err)
	}

	if mqc := manager.GetMQClient(); mqc != nil && config.Tagging.Enabled {
		svc.Tagger.Register(mqc)
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	if err := engine.SetTrustedProxies(config.Server.TrustedProxies); err != nil {
		_ = manager.Close()
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	engine.MaxMultipartMemory = config.Server.MultipartMiB << 20

	engine.Use(
		gin.Recovery(),
		middleware.ContextMiddleware(manager, sched),
		middleware.CORSMiddleware(config.Server),
		middleware.TracingMiddleware(),
		middleware.GinLoggerMiddleware(),
		middleware.PrometheusMiddleware(),
		middleware.CircuitBreakerMiddleware(config.CircuitBreaker),
	)

	metrics.RegisterRoutes(config.Metrics, engine)
	router.Register(engine, handle.New(svc, runner), config, svc.Cache)

	return &App{
		Engine:  engine,
		config:  config,
		manager: manager,
		svc:     svc,
		sched:   sched,
	}, nil
}

// Run 启动事件消费、定时任务与 HTTP 服务，ctx 结束后优雅退出.
func (a *App) Run(ctx context.Context) error {
	l := log.Logger()

	if mqc := a.manager.GetMQClient(); mqc != nil {
		go func() {
			if err := mqc.Run(ctx); err != nil {
				l.Error().Err(err).Msg("mq router stopped")
			}
		}()
	}

	a.sched.Start()

	srv := &http.Server{
		Addr:              a.config.Server.Addr(),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.GetTimeoutDuration(),
	}

	errCh := make(chan error, 1)

	go func() {
		l.Info().Str("addr", srv.Addr).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		a.close(context.Background())
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	a.close(shutdownCtx)

	return err
}

func (a *App) close(ctx context.Context) {
	l := log.Logger()

	if err := a.sched.Stop(); err != nil {
		l.Warn().Err(err).Msg("stop scheduler")
	}

	if err := a.manager.Close(); err != nil {
		l.Warn().Err(err).Msg("close storage")
	}

	if err := tracing.ShutdownTracer(ctx); err != nil {
		l.Warn().Err(err).Msg("shutdown tracer")
	}
}
