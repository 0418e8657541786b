package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/staticmd/pkg/internal/handle"
)

// RegisterAdminRoutes 注册管理接口，调用方负责挂认证中间件.
func RegisterAdminRoutes(g *gin.RouterGroup, h *handle.Handlers) {
	g.POST("/photos/:code/tags", h.ApplyTags)

	g.GET("/jobs", h.ListJobs)
	g.POST("/jobs/:name/run", h.RunJob)
}
