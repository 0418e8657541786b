package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/staticmd/pkg/configs"
)

// AdminKey gin 上下文中记录管理员身份的键.
const AdminKey = "admin"

// AdminAuthMiddleware 保护 /api/admin：优先识别 oauth2-proxy 注入的 X-Auth-Request-Email /
// X-Forwarded-Email，其次 Authorization: Bearer <auth.admin_token>.
// dev_allow_query 打开时允许 ?user= 兜底，仅供本地调试.
func AdminAuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !conf.Enabled {
			c.Set(AdminKey, "anonymous")
			c.Next()

			return
		}

		if who := adminIdentity(c, conf); who != "" {
			c.Set(AdminKey, who)
			c.Next()

			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

func adminIdentity(c *gin.Context, conf configs.AuthConfig) string {
	for _, h := range []string{"X-Auth-Request-Email", "X-Forwarded-Email"} {
		if email := strings.TrimSpace(c.GetHeader(h)); email != "" {
			return email
		}
	}

	if conf.AdminToken != "" {
		if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok &&
			subtle.ConstantTimeCompare([]byte(strings.TrimSpace(bearer)), []byte(conf.AdminToken)) == 1 {
			return "token"
		}
	}

	if conf.DevAllowQuery {
		return strings.TrimSpace(c.Query("user"))
	}

	return ""
}
