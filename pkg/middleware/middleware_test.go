package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcache "github.com/yeisme/staticmd/pkg/cache"
	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/storage/kv"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestClientOrigin(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, ClientOrigin(c)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	assert.Equal(t, "203.0.113.9", serve(r, req).Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", serve(r, req).Body.String())
}

func TestCacheMiddleware(t *testing.T) {
	calls := 0
	c := appcache.NewCache(kv.NewMemoryKVWithClock(time.Now))

	r := gin.New()
	r.GET("/g/:code", CacheMiddleware(DefaultCacheConfig(c)), func(c *gin.Context) {
		calls++

		if c.Param("code") == "missing" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Gallery not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"links": []string{"a"}})
	})

	first := serve(r, httptest.NewRequest(http.MethodGet, "/g/abc", nil))
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"links":["a"]}`, first.Body.String())

	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	second := serve(r, httptest.NewRequest(http.MethodGet, "/g/abc", nil))
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, etag, second.Header().Get("ETag"))

	req := httptest.NewRequest(http.MethodGet, "/g/abc", nil)
	req.Header.Set("If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, serve(r, req).Code)
	assert.Equal(t, 1, calls)

	// 非 200 不缓存
	for range 2 {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/g/missing", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"Gallery not found"}`, w.Body.String())
	}

	assert.Equal(t, 3, calls)
}

func TestAdminAuthMiddleware(t *testing.T) {
	conf := configs.AuthConfig{Enabled: true, AdminToken: "t0ken"}

	r := gin.New()
	r.GET("/admin", AdminAuthMiddleware(conf), func(c *gin.Context) { c.String(http.StatusOK, c.GetString(AdminKey)) })

	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/admin", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Auth-Request-Email", "ops@example.com")
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ops@example.com", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer t0ken")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/admin?user=dev", nil)).Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.POST("/up", RateLimitMiddleware(configs.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1, Key: "ip"}),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	req := func(ip string) *http.Request {
		rq := httptest.NewRequest(http.MethodPost, "/up", nil)
		rq.Header.Set("X-Forwarded-For", ip)

		return rq
	}

	assert.Equal(t, http.StatusOK, serve(r, req("1.1.1.1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, req("1.1.1.1")).Code)
	assert.Equal(t, http.StatusOK, serve(r, req("2.2.2.2")).Code)
}
