// Package middleware 提供 gin 中间件：日志、指标、追踪、限流、熔断、管理认证与相册响应缓存.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// ClientOrigin 上传来源地址：X-Forwarded-For 第一段，其次 gin 解析的客户端 IP，都没有时为 "unknown".
func ClientOrigin(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	return "unknown"
}
