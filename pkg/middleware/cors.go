package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/staticmd/pkg/configs"
)

// CORSMiddleware 上传接口允许任意来源的浏览器调用.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "HEAD", "POST", "OPTIONS"}
	config.AllowHeaders = append(config.AllowHeaders, "Authorization", "If-None-Match")
	config.ExposeHeaders = []string{"ETag", "X-Cache"}

	if cfg.Debug {
		config.AllowHeaders = append(config.AllowHeaders, "X-Cache-Bypass")
	}

	return cors.New(config)
}
