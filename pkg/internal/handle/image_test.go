package handle_test

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/staticmd/pkg/internal/handle"
	"github.com/yeisme/staticmd/pkg/internal/service"
	"github.com/yeisme/staticmd/pkg/internal/testkit"
)

func uploadBatch(t *testing.T, s *server, parts ...part) handle.BatchResponse {
	t.Helper()

	w := s.do(multipartRequest(t, "/api/v4/upload", map[string]string{"token": testkit.SharedSecret}, parts...))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	return decode[handle.BatchResponse](t, w)
}

func TestServeImage(t *testing.T) {
	s := newServer(t, nil)
	img := jpegPart(t, "a.jpg", 40, 20, 30)
	md5 := service.Fingerprint(img.data)
	batch := uploadBatch(t, s, img)

	for _, path := range []string{"/" + md5 + ".jpg", "/" + md5} {
		w := s.get(path)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
		assert.Equal(t, handle.ImageCacheControl, w.Header().Get("Cache-Control"))
		assert.Equal(t, img.data, w.Body.Bytes())
	}

	w := s.get("/" + md5 + ".jpg?size=20.7")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, handle.ImageCacheControl, w.Header().Get("Cache-Control"))

	cfg, _, err := image.DecodeConfig(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
	assert.Equal(t, 10, cfg.Height)

	// 小于 10 或大于原宽时返回原图
	for _, size := range []string{"5", "400", "abc"} {
		w = s.get("/" + md5 + ".jpg?size=" + size)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, img.data, w.Body.Bytes(), size)
	}

	w = s.get("/" + batch.Gallery)
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "/g/"+batch.Gallery, w.Header().Get("Location"))
}

func TestServeImageNotFound(t *testing.T) {
	s := newServer(t, nil)

	for _, path := range []string{"/favicon.ico", "/robots.txt", "/nothing"} {
		w := s.get(path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "Not found", w.Body.String(), path)
	}
}

func TestServeImageBlocked(t *testing.T) {
	s := newServer(t, nil)
	img := jpegPart(t, "a.jpg", 16, 16, 7)
	md5 := service.Fingerprint(img.data)
	uploadBatch(t, s, img)

	require.NoError(t, s.env.DB.Exec("UPDATE photos SET blocked = ? WHERE fingerprint = ?", true, md5).Error)

	w := s.get("/" + md5 + ".jpg")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "not found"))
}

func TestServeImageMissingBlob(t *testing.T) {
	s := newServer(t, nil)
	img := jpegPart(t, "a.jpg", 16, 16, 8)
	md5 := service.Fingerprint(img.data)
	uploadBatch(t, s, img)

	s.env.Blob.Delete(md5 + ".jpg")

	w := s.get("/" + md5 + ".jpg")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
