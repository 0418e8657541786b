package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/staticmd/pkg/internal/handle"
)

// RegisterImageRoutes 注册根路径上的相册与图片读取. /:code 与 /api、/g 等静态前缀并存.
func RegisterImageRoutes(e *gin.Engine, h *handle.Handlers, galleryCache gin.HandlerFunc) {
	e.GET("/g/:code", galleryCache, h.GetGallery)
	e.GET("/:code", h.ServeImage)
	e.HEAD("/:code", h.ServeImage)
}
