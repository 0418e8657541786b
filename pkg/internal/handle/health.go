package handle

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/staticmd/pkg/context"
)

const timeout = 2 * time.Second

type checker interface {
	HealthCheck(ctx context.Context) error
}

// Health GET /api/health 进程存活.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

// healthComponents 可单独探测的依赖，键同时作为路由后缀.
var healthComponents = map[string]func(ctx context.Context) checker{
	"db": func(ctx context.Context) checker {
		if dbc := ctxPkg.GetDBClient(ctx); dbc != nil {
			return dbc
		}

		return nil
	},
	"s3": func(ctx context.Context) checker {
		if store := ctxPkg.GetBlobStore(ctx); store != nil {
			return store
		}

		return nil
	},
	"kv": func(ctx context.Context) checker {
		if kvc := ctxPkg.GetKVClient(ctx); kvc != nil {
			return kvc
		}

		return nil
	},
	"mq": func(ctx context.Context) checker {
		if mqc := ctxPkg.GetMQClient(ctx); mqc != nil {
			return mqc
		}

		return nil
	},
}

// HealthComponent GET /api/health/:component，组件未知时 404.
func HealthComponent(c *gin.Context) {
	name := c.Param("component")

	lookup, ok := healthComponents[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"component": name, "error": msgNotFound})
		return
	}

	probe(c, name, lookup(c.Request.Context()))
}

// probe chk 为 nil 表示组件未初始化.
func probe(c *gin.Context, component string, chk checker) {
	if chk == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": component, "status": "unhealthy", "error": component + " client not initialized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	if err := chk.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"component": component, "status": "unhealthy", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"component": component, "status": "ok"})
}
