package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ctxPkg "github.com/yeisme/staticmd/pkg/context"
	"github.com/yeisme/staticmd/pkg/internal/storage"
	"github.com/yeisme/staticmd/pkg/scheduler"
)

// RequestIDHeader 沿用上游代理给出的请求 ID，否则生成一个并回写.
const RequestIDHeader = "X-Request-ID"

// ContextMiddleware 将存储管理器、调度器与请求 ID 放入请求上下文. manager 与 sched 可为 nil.
func ContextMiddleware(manager *storage.Manager, sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		c.Header(RequestIDHeader, id)

		ctx := ctxPkg.WithRequestID(c.Request.Context(), id)
		if manager != nil {
			ctx = ctxPkg.WithStorageManager(ctx, manager)
		}

		if sched != nil {
			ctx = ctxPkg.WithScheduler(ctx, sched)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
