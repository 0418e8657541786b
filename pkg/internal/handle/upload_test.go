package handle_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/handle"
	"github.com/yeisme/staticmd/pkg/internal/service"
	"github.com/yeisme/staticmd/pkg/internal/testkit"
)

func TestGetTokenV2WithMD5(t *testing.T) {
	s := newServer(t, nil)
	md5 := "0123456789abcdef0123456789abcdef"

	w := s.do(formRequest("/api/v2/get-token", url.Values{"md5": {md5}}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[handle.TokenResponse](t, w)
	assert.Len(t, resp.Token, service.TokenSecretLength)
	assert.Equal(t, 2, resp.TokenValidAfterSeconds)
	assert.Equal(t, testkit.Epoch.Unix()+2, resp.TokenValidAfterTimestamp)
	assert.Equal(t, 30, resp.TokenValidSeconds)
	assert.Equal(t, testkit.Epoch.Unix(), resp.ServerTimestamp)
	assert.Empty(t, resp.Error)
}

func TestGetTokenV2Rejections(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(formRequest("/api/v2/get-token", url.Values{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "md5 or ONE file required", errorOf(t, w))

	w = s.do(formRequest("/api/v2/get-token", url.Values{"md5": {"0123456789ABCDEF0123456789ABCDEF"}}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid md5", errorOf(t, w))

	w = s.do(multipartRequest(t, "/api/v2/get-token", nil, part{name: "notes.txt", mime: "text/plain", data: []byte("hi")}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `"notes.txt" is not image`, errorOf(t, w))

	w = s.do(multipartRequest(t, "/api/v2/get-token", nil,
		jpegPart(t, "a.jpg", 8, 8, 1), jpegPart(t, "b.jpg", 8, 8, 2)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "md5 or ONE file required", errorOf(t, w))

	// md5 与文件只能给出一个
	w = s.do(multipartRequest(t, "/api/v2/get-token", map[string]string{"md5": "0123456789abcdef0123456789abcdef"},
		jpegPart(t, "a.jpg", 8, 8, 1)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "md5 or ONE file required", errorOf(t, w))
}

func TestGetTokenV2RejectsVideo(t *testing.T) {
	s := newServer(t, func(c *configs.AppConfig) { c.Upload.AllowVideo = true })
	clip := part{name: "clip.mp4", mime: "video/mp4", data: []byte("not really a video")}

	w := s.do(multipartRequest(t, "/api/v2/get-token", nil, clip))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `"clip.mp4" is not image`, errorOf(t, w))

	w = s.do(formRequest("/api/v2/get-token", url.Values{"md5": {service.Fingerprint(clip.data)}}))
	require.Equal(t, http.StatusOK, w.Code)

	s.env.Clock.Advance(3 * time.Second)

	w = s.do(multipartRequest(t, "/api/v2/upload", map[string]string{"token": decode[handle.TokenResponse](t, w).Token}, clip))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `"clip.mp4" is not image`, errorOf(t, w))
}

func TestUploadV2TooBig(t *testing.T) {
	s := newServer(t, func(c *configs.AppConfig) { c.Upload.MaxFileBytes = 64 })
	big := jpegPart(t, "big.jpg", 64, 64, 1)

	w := s.do(formRequest("/api/v2/get-token", url.Values{"md5": {service.Fingerprint(big.data)}}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	token := decode[handle.TokenResponse](t, w).Token

	s.env.Clock.Advance(3 * time.Second)

	w = s.do(multipartRequest(t, "/api/v2/upload", map[string]string{"token": token}, big))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `"big.jpg" is too big`, errorOf(t, w))
}

func TestUploadV2(t *testing.T) {
	s := newServer(t, nil)
	img := jpegPart(t, "cat.jpg", 32, 16, 10)
	md5 := service.Fingerprint(img.data)

	w := s.do(multipartRequest(t, "/api/v2/get-token", nil, img))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	token := decode[handle.TokenResponse](t, w).Token

	// 令牌尚未生效
	w = s.do(multipartRequest(t, "/api/v2/upload", map[string]string{"token": token}, img))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid Token", errorOf(t, w))

	s.env.Clock.Advance(3 * time.Second)

	w = s.do(multipartRequest(t, "/api/v2/upload", map[string]string{"token": token}, img))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"image":"https://static.md/`+md5+`.jpg","error":""}`, w.Body.String())

	// 令牌与文件指纹不符
	other := jpegPart(t, "dog.jpg", 32, 16, 200)
	w = s.do(multipartRequest(t, "/api/v2/upload", map[string]string{"token": token}, other))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(multipartRequest(t, "/api/v2/upload", nil, img))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "token and ONE file required", errorOf(t, w))

	s.env.Clock.Advance(time.Minute)

	w = s.do(multipartRequest(t, "/api/v2/upload", map[string]string{"token": token}, img))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadV4Auth(t *testing.T) {
	s := newServer(t, nil)
	img := jpegPart(t, "a.jpg", 8, 8, 1)

	w := s.do(multipartRequest(t, "/api/v4/upload", map[string]string{"token": "wrong"}, img))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Incorrect token", errorOf(t, w))

	w = s.do(multipartRequest(t, "/api/v4/upload", map[string]string{"token": testkit.SharedSecret}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "At least one file required", errorOf(t, w))

	unset := newServer(t, func(c *configs.AppConfig) { c.Upload.SharedSecret = "" })
	w = unset.do(multipartRequest(t, "/api/v4/upload", map[string]string{"token": ""}, img))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUploadV4GalleryReuse(t *testing.T) {
	s := newServer(t, nil)
	a := jpegPart(t, "a.jpg", 40, 20, 10)
	b := jpegPart(t, "b.jpg", 30, 60, 90)
	fields := map[string]string{"token": testkit.SharedSecret}

	w := s.do(multipartRequest(t, "/api/v4/upload", fields, a, b))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	first := decode[handle.BatchResponse](t, w)
	assert.Len(t, first.Gallery, configs.DefaultGalleryCodeLength)
	assert.Empty(t, first.Errors)
	require.Len(t, first.Links, 2)
	assert.Equal(t, "https://static.md/"+service.Fingerprint(a.data)+".jpg", first.Links[0].URL)
	assert.Equal(t, service.PhotoSize{H: 20, W: 40}, first.Links[0].Size)
	assert.Equal(t, service.PhotoSize{H: 60, W: 30}, first.Links[1].Size)

	w = s.do(multipartRequest(t, "/api/v4/upload", fields, b, a))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	second := decode[handle.BatchResponse](t, w)
	assert.Equal(t, first.Gallery, second.Gallery)
	assert.Equal(t, first.Links[0].URL, second.Links[1].URL)

	w = s.get("/api/v4/g/" + first.Gallery)
	require.Equal(t, http.StatusOK, w.Code)

	links := decode[map[string][]service.GalleryLink](t, w)["links"]
	require.Len(t, links, 2)
	assert.Equal(t, first.Links, links)

	w = s.get("/g/" + first.Gallery)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]service.GalleryLink](t, w)["links"], 2)

	w = s.get("/api/v4/g/nothere")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Gallery not found", errorOf(t, w))
}

func TestUploadV4PartialFailure(t *testing.T) {
	s := newServer(t, func(c *configs.AppConfig) { c.Upload.MaxFiles = 2 })
	fields := map[string]string{"token": testkit.SharedSecret}

	w := s.do(multipartRequest(t, "/api/v4/upload", fields,
		part{name: "notes.txt", mime: "text/plain", data: []byte("hi")},
		jpegPart(t, "ok.jpg", 8, 8, 5),
		jpegPart(t, "late.jpg", 8, 8, 6),
	))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[handle.BatchResponse](t, w)
	assert.NotEmpty(t, resp.Gallery)
	assert.Len(t, resp.Links, 1)
	require.Len(t, resp.Errors, 2)
	assert.Equal(t, `"notes.txt" is not image`, resp.Errors[0])
	assert.True(t, strings.Contains(resp.Errors[1], `"late.jpg"`), resp.Errors[1])

	w = s.do(multipartRequest(t, "/api/v4/upload", fields,
		part{name: "notes.txt", mime: "text/plain", data: []byte("hi")}))
	require.Equal(t, http.StatusOK, w.Code)

	resp = decode[handle.BatchResponse](t, w)
	assert.Empty(t, resp.Gallery)
	assert.Empty(t, resp.Links)
	assert.Len(t, resp.Errors, 1)
}

func TestUploadV4TooBig(t *testing.T) {
	s := newServer(t, func(c *configs.AppConfig) { c.Upload.MaxFileBytes = 64 })

	w := s.do(multipartRequest(t, "/api/v4/upload", map[string]string{"token": testkit.SharedSecret},
		jpegPart(t, "big.jpg", 64, 64, 1)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[handle.BatchResponse](t, w)
	assert.Equal(t, []string{`"big.jpg" is too big`}, resp.Errors)
	assert.Empty(t, resp.Gallery)
}
