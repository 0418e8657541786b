// Package router 管理路由配置，将 handle 中的处理器绑定到 gin 引擎.
package router

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/staticmd/pkg/cache"
	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/handle"
	"github.com/yeisme/staticmd/pkg/middleware"
)

// Register 绑定全部路由：
//
//	/api/health[/db|/s3|/kv|/mq]
//	/api/v2/get-token, /api/v2/upload
//	/api/v4/upload, /api/v4/g/:code
//	/api/admin/...
//	/g/:code, /:code
//
// respCache 为 nil 时相册响应不缓存.
func Register(e *gin.Engine, h *handle.Handlers, cfg *configs.AppConfig, respCache *cache.Cache) {
	galleryCache := middleware.CacheMiddleware(middleware.DefaultCacheConfig(respCache))

	api := e.Group("/api", gzip.Gzip(gzip.DefaultCompression))
	{
		RegisterHealthCheckRoute(api)
		RegisterUploadRoutes(api, h, cfg, galleryCache)
		RegisterAdminRoutes(api.Group("/admin", middleware.AdminAuthMiddleware(cfg.Auth)), h)
	}

	RegisterImageRoutes(e, h, galleryCache)
}
