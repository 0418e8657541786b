package handle_test

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/staticmd/pkg/api"
	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/service"
	"github.com/yeisme/staticmd/pkg/internal/testkit"
)

const adminToken = "admin-test-token"

func init() { gin.SetMode(gin.TestMode) }

type server struct {
	engine *gin.Engine
	svc    *service.Services
	env    *testkit.Env
	cfg    *configs.AppConfig
}

func newServer(t *testing.T, mutate func(*configs.AppConfig)) *server {
	t.Helper()

	cfg := testkit.Config()
	cfg.RateLimit.Enabled = false
	cfg.Auth.Enabled = true
	cfg.Auth.AdminToken = adminToken

	if mutate != nil {
		mutate(cfg)
	}

	env := testkit.New(t)
	svc := service.New(service.Deps{
		DB:        env.DB,
		Blob:      env.Blob,
		KV:        env.KV,
		Publisher: env.Pub,
		Clock:     env.Clock,
	}, cfg)
	svc.Tokens = svc.Tokens.WithDelay(func(int, int) (int, error) { return 2, nil })

	return &server{engine: api.NewEngine(svc, cfg), svc: svc, env: env, cfg: cfg}
}

func (s *server) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	return w
}

func (s *server) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

type part struct {
	name string
	mime string
	data []byte
}

func jpegPart(t *testing.T, name string, w, h int, shade uint8) part {
	return part{name: name, mime: "image/jpeg", data: testkit.JPEG(t, w, h, shade)}
}

// multipartRequest 文件按给定顺序写入同名字段 file.
func multipartRequest(t *testing.T, path string, fields map[string]string, parts ...part) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, p.name))
		h.Set("Content-Type", p.mime)

		fw, err := mw.CreatePart(h)
		require.NoError(t, err)

		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &v), w.Body.String())

	return v
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	return decode[map[string]any](t, w)["error"].(string)
}
