package handle

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/staticmd/pkg/context"
	"github.com/yeisme/staticmd/pkg/internal/service"
	"github.com/yeisme/staticmd/pkg/metrics"
	"github.com/yeisme/staticmd/pkg/middleware"
)

const endpointV4 = "v4"

// BatchResponse v4 批量上传的响应. Gallery 为空表示没有文件入库.
type BatchResponse struct {
	Gallery string                `json:"gallery"`
	Links   []service.GalleryLink `json:"links"`
	Errors  []string              `json:"errors"`
}

// UploadV4 POST /api/v4/upload
//
// 每个文件独立入库，单个失败记入 errors 不影响其余文件；入库成功的集合聚合为相册.
func (h *Handlers) UploadV4(c *gin.Context) {
	cfg := h.svc.Upload

	form, err := parseUploadForm(c, cfg.MaxFiles, cfg.MaxFileBytes)
	if err != nil {
		badRequest(c, msgNeedFiles)
		return
	}

	if !sharedSecretMatches(cfg.SharedSecret, form.Fields["token"]) {
		c.JSON(http.StatusForbidden, gin.H{"error": msgIncorrectToken})
		return
	}

	if form.fileCount() == 0 {
		badRequest(c, msgNeedFiles)
		return
	}

	ctx := c.Request.Context()
	origin := middleware.ClientOrigin(c)
	resp := BatchResponse{Links: []service.GalleryLink{}, Errors: []string{}}
	refs := make([]service.PhotoRef, 0, len(form.Files))

	for _, f := range form.Files {
		ref, err := h.svc.Photos.Ingest(ctx, service.IngestInput{Name: f.Name, Data: f.Data, MIME: f.MIME, Origin: origin})
		if err != nil {
			metrics.UploadsTotal.WithLabelValues(endpointV4, uploadResult(err)).Inc()
			resp.Errors = append(resp.Errors, fileError(c, f.Name, err))

			continue
		}

		metrics.UploadsTotal.WithLabelValues(endpointV4, createdResult(ref)).Inc()

		refs = append(refs, ref)
		resp.Links = append(resp.Links, service.GalleryLink{
			URL:  ref.URL,
			Size: service.PhotoSize{H: ref.Height, W: ref.Width},
		})
	}

	for _, name := range form.Overflow {
		metrics.UploadsTotal.WithLabelValues(endpointV4, metrics.ResultRejected).Inc()
		resp.Errors = append(resp.Errors, fmt.Sprintf("%q was not processed, at most %d files per upload", name, cfg.MaxFiles))
	}

	if len(refs) > 0 {
		gallery, err := h.svc.Galleries.GroupOrReuse(ctx, refs)
		if err != nil {
			respondError(c, err)
			return
		}

		resp.Gallery = gallery.Code
	}

	c.JSON(http.StatusOK, resp)
}

// fileError 准入拒绝原样返回；其他错误记日志，只对外给出文件名.
func fileError(c *gin.Context, name string, err error) string {
	var adm *service.AdmissionError
	if errors.As(err, &adm) {
		return adm.Message
	}

	ctxPkg.Logger(c.Request.Context()).Error().Err(err).Str("file", name).Msg("batch file failed")

	return fmt.Sprintf("%q could not be stored", name)
}

// sharedSecretMatches 口令未配置时一律不匹配.
func sharedSecretMatches(secret, given string) bool {
	if secret == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(secret), []byte(given)) == 1
}

// GetGallery GET /api/v4/g/:code 与 GET /g/:code
func (h *Handlers) GetGallery(c *gin.Context) {
	links, err := h.svc.Galleries.GalleryLinks(c.Request.Context(), c.Param("code"))
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": msgGalleryMissing})
		return
	}

	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": links})
}
