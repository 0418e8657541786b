// Package api 组装不依赖外部存储的 gin 引擎，用于嵌入其他服务或在测试中直接驱动全部路由.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/handle"
	"github.com/yeisme/staticmd/pkg/internal/jobs"
	"github.com/yeisme/staticmd/pkg/internal/router"
	"github.com/yeisme/staticmd/pkg/internal/service"
	"github.com/yeisme/staticmd/pkg/middleware"
)

// NewEngine 使用给定的业务组件注册全部路由. 调度器未注入，/api/admin/jobs 返回空列表.
func NewEngine(svc *service.Services, cfg *configs.AppConfig) *gin.Engine {
	e := gin.New()
	e.Use(gin.Recovery(), middleware.ContextMiddleware(nil, nil))
	e.MaxMultipartMemory = cfg.Server.MultipartMiB << 20

	router.Register(e, handle.New(svc, jobs.NewRunner(svc, cfg)), cfg, svc.Cache)

	return e
}
