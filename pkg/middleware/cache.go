package middleware

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/staticmd/pkg/cache"
	ctxPkg "github.com/yeisme/staticmd/pkg/context"
)

const (
	// DefaultMaxBodyBytes 超过该大小的响应不缓存.
	DefaultMaxBodyBytes = 1 << 20
	defaultBypassHeader = "X-Cache-Bypass"
	defaultResponseTTL  = time.Hour
)

// CacheConfig 响应缓存配置. 只缓存 GET/HEAD 的 200 响应.
type CacheConfig struct {
	Cache        *appcache.Cache
	TTL          time.Duration
	KeyFunc      func(*gin.Context) string
	BypassHeader string
	MaxBodyBytes int
}

// DefaultCacheConfig 相册 JSON 创建后不再变化，TTL 取一小时.
func DefaultCacheConfig(c *appcache.Cache) CacheConfig {
	return CacheConfig{
		Cache:        c,
		TTL:          defaultResponseTTL,
		BypassHeader: defaultBypassHeader,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

type responseCacheEntry struct {
	Status      int    `json:"s"`
	ContentType string `json:"c,omitempty"`
	Body        []byte `json:"b,omitempty"`
	ETag        string `json:"e"`
	StoredAt    int64  `json:"t"`
}

// CacheMiddleware 缓存整段响应并附带 xxhash ETag，If-None-Match 命中时返回 304.
// cfg.Cache 为 nil 时不做任何事.
func CacheMiddleware(cfg CacheConfig) gin.HandlerFunc {
	if cfg.Cache == nil {
		return func(c *gin.Context) { c.Next() }
	}

	if cfg.TTL <= 0 {
		cfg.TTL = defaultResponseTTL
	}

	if cfg.BypassHeader == "" {
		cfg.BypassHeader = defaultBypassHeader
	}

	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.Request.URL.Path }
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Next()
			return
		}

		if c.GetHeader(cfg.BypassHeader) != "" {
			c.Next()
			return
		}

		key := "rc:" + strconv.FormatUint(xxhash.Sum64String(cfg.KeyFunc(c)), 16)

		if entry, err := appcache.Get[responseCacheEntry](c.Request.Context(), cfg.Cache, key); err == nil {
			c.Header("X-Cache", "HIT")
			c.Header("Age", strconv.FormatInt(int64(time.Since(time.Unix(0, entry.StoredAt)).Seconds()), 10))
			writeEntry(c, entry)

			return
		}

		bw := &bufferedWriter{ResponseWriter: c.Writer}
		c.Writer = bw

		c.Next()

		c.Writer = bw.ResponseWriter
		status := bw.Status()

		if status != http.StatusOK || (cfg.MaxBodyBytes > 0 && bw.buf.Len() > cfg.MaxBodyBytes) {
			bw.flush()
			return
		}

		entry := responseCacheEntry{
			Status:      status,
			ContentType: bw.Header().Get("Content-Type"),
			Body:        bytes.Clone(bw.buf.Bytes()),
			ETag:        `"` + strconv.FormatUint(xxhash.Sum64(bw.buf.Bytes()), 16) + `"`,
			StoredAt:    time.Now().UnixNano(),
		}

		if err := appcache.Set(context.WithoutCancel(c.Request.Context()), cfg.Cache, key, entry, cfg.TTL); err != nil {
			ctxPkg.Logger(c.Request.Context()).Warn().Err(err).Str("key", key).Msg("response cache store failed")
		}

		c.Header("X-Cache", "MISS")
		writeEntry(c, entry)
	}
}

func writeEntry(c *gin.Context, e responseCacheEntry) {
	c.Header("ETag", e.ETag)

	if match := c.GetHeader("If-None-Match"); match != "" && match == e.ETag {
		c.AbortWithStatus(http.StatusNotModified)
		return
	}

	if e.ContentType != "" {
		c.Header("Content-Type", e.ContentType)
	}

	c.Status(e.Status)

	if c.Request.Method != http.MethodHead {
		_, _ = c.Writer.Write(e.Body)
	}

	c.Abort()
}

// bufferedWriter 暂存响应体，状态码只记录不下发，由中间件决定最终输出.
type bufferedWriter struct {
	gin.ResponseWriter

	buf bytes.Buffer
}

func (w *bufferedWriter) Write(b []byte) (int, error) { return w.buf.Write(b) }

func (w *bufferedWriter) WriteString(s string) (int, error) { return w.buf.WriteString(s) }

func (w *bufferedWriter) flush() {
	if w.buf.Len() > 0 {
		_, _ = w.ResponseWriter.Write(w.buf.Bytes())
		return
	}

	w.ResponseWriter.WriteHeaderNow()
}
