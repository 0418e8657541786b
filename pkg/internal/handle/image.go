package handle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/staticmd/pkg/context"
	"github.com/yeisme/staticmd/pkg/internal/model"
	"github.com/yeisme/staticmd/pkg/internal/service"
)

// ImageCacheControl 图片内容不可变，允许 CDN 与浏览器长期缓存.
const ImageCacheControl = "public, s-maxage=315360000, max-age=315360000"

var reservedCodes = map[string]bool{"": true, "favicon.ico": true, "robots.txt": true}

// ServeImage GET /:code
//
// 图片链接返回原图或按 ?size= 缩放后的内容；相册链接 301 到 /g/:code.
func (h *Handlers) ServeImage(c *gin.Context) {
	code := c.Param("code")
	if reservedCodes[code] {
		c.String(http.StatusNotFound, msgNotFound)
		return
	}

	ctx := c.Request.Context()

	link, err := h.svc.Links.Resolve(ctx, code)

	switch {
	case errors.Is(err, service.ErrNotFound):
		h.redirectLegacyGallery(c, code)
		return
	case err != nil:
		imageError(c, err)
		return
	case link.TargetType == model.TargetGallery:
		c.Redirect(http.StatusMovedPermanently, "/g/"+code)
		return
	case link.TargetType != model.TargetPhoto:
		h.redirectLegacyGallery(c, code)
		return
	}

	photo, err := h.svc.Photos.Get(ctx, link.TargetID)
	if errors.Is(err, service.ErrNotFound) {
		c.String(http.StatusNotFound, "Photo not found")
		return
	}

	if err != nil {
		imageError(c, err)
		return
	}

	go h.svc.Photos.RecordView(context.WithoutCancel(ctx), photo.Fingerprint)

	h.writePhoto(c, photo, service.ParseSize(c.Query("size")))
}

func (h *Handlers) writePhoto(c *gin.Context, photo *model.Photo, size int) {
	rc, err := h.svc.Photos.Open(c.Request.Context(), photo)
	if err != nil {
		imageError(c, err)
		return
	}
	defer rc.Close()

	contentType := service.ContentTypeFor(photo.Format)
	headers := map[string]string{"Cache-Control": ImageCacheControl}

	if size > 0 && service.Resizable(photo.Format) {
		if w := service.TargetWidth(size, photo.Width); w != photo.Width && w > 0 {
			data, err := io.ReadAll(rc)
			if err != nil {
				imageError(c, err)
				return
			}

			scaled, err := service.Resize(data, photo.Format, w)
			if err != nil {
				imageError(c, err)
				return
			}

			c.Header("Content-Length", strconv.Itoa(len(scaled)))
			c.Header("Cache-Control", ImageCacheControl)
			c.Data(http.StatusOK, contentType, scaled)

			return
		}
	}

	c.DataFromReader(http.StatusOK, photo.SizeBytes, contentType, rc, headers)
}

// redirectLegacyGallery links 表缺行时扫描相册自带的链接列表.
func (h *Handlers) redirectLegacyGallery(c *gin.Context, code string) {
	_, err := h.svc.Links.FindGalleryByLinkScan(c.Request.Context(), code)

	switch {
	case err == nil:
		c.Redirect(http.StatusMovedPermanently, "/g/"+code)
	case errors.Is(err, service.ErrNotFound):
		c.String(http.StatusNotFound, msgNotFound)
	default:
		imageError(c, err)
	}
}

func imageError(c *gin.Context, err error) {
	ctxPkg.Logger(c.Request.Context()).Error().Err(err).Str("code", c.Param("code")).Msg("serve image failed")
	_ = c.Error(err)

	if errors.Is(err, service.ErrNotFound) {
		c.String(http.StatusNotFound, msgNotFound)
		return
	}

	c.String(http.StatusInternalServerError, msgInternal)
}
