package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/handle"
	"github.com/yeisme/staticmd/pkg/middleware"
)

// RegisterUploadRoutes 注册 v2 令牌上传与 v4 批量上传，写入接口统一限流.
func RegisterUploadRoutes(g *gin.RouterGroup, h *handle.Handlers, cfg *configs.AppConfig, galleryCache gin.HandlerFunc) {
	limit := middleware.RateLimitMiddleware(cfg.RateLimit)

	v2 := g.Group("/v2", limit)
	{
		v2.POST("/get-token", h.GetTokenV2)
		v2.POST("/upload", h.UploadV2)
	}

	v4 := g.Group("/v4")
	{
		v4.POST("/upload", limit, h.UploadV4)
		v4.GET("/g/:code", galleryCache, h.GetGallery)
	}
}
