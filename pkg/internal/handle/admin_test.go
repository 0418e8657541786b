package handle_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/staticmd/pkg/internal/service"
)

func adminRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)

	return req
}

func TestAdminApplyTags(t *testing.T) {
	s := newServer(t, nil)
	img := jpegPart(t, "a.jpg", 16, 16, 3)
	md5 := service.Fingerprint(img.data)
	uploadBatch(t, s, img)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/photos/"+md5+".jpg/tags", strings.NewReader(`{"tags":["Cat"]}`))
	assert.Equal(t, http.StatusUnauthorized, s.do(req).Code)

	w := s.do(adminRequest(http.MethodPost, "/api/admin/photos/"+md5+".jpg/tags", `{"tags":["Cat"," Sky "]}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"fingerprint":"`+md5+`","tags":["cat","sky","ai:analyzed"]}`, w.Body.String())

	// 已完成打标，保持不变
	w = s.do(adminRequest(http.MethodPost, "/api/admin/photos/"+md5+"/tags", `{"tags":["dog"]}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"fingerprint":"`+md5+`","tags":["cat","sky","ai:analyzed"]}`, w.Body.String())

	w = s.do(adminRequest(http.MethodPost, "/api/admin/photos/"+md5+"/tags", `{"tags":[]}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(adminRequest(http.MethodPost, "/api/admin/photos/missing/tags", `{"tags":["x"]}`))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminJobs(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(adminRequest(http.MethodGet, "/api/admin/jobs", ""))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"jobs":[]}`, w.Body.String())

	w = s.do(adminRequest(http.MethodPost, "/api/admin/jobs/tokens.reap/run", ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"job":"tokens.reap","status":"completed"}`, w.Body.String())

	w = s.do(adminRequest(http.MethodPost, "/api/admin/jobs/nope/run", ""))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	s := newServer(t, nil)

	w := s.get("/api/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, w)["status"])
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "edge-42")
	assert.Equal(t, "edge-42", s.do(req).Header().Get("X-Request-ID"))

	// 未注入存储管理器
	w = s.get("/api/health/db")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"component":"db","status":"unhealthy","error":"db client not initialized"}`, w.Body.String())

	w = s.get("/api/health/cpu")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
