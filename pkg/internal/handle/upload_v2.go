package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/staticmd/pkg/internal/service"
	"github.com/yeisme/staticmd/pkg/metrics"
	"github.com/yeisme/staticmd/pkg/middleware"
	"github.com/yeisme/staticmd/pkg/rule"
)

const endpointV2 = "v2"

// TokenResponse v2 取令牌的响应.
type TokenResponse struct {
	Token                    string `json:"token"`
	TokenValidAfterSeconds   int    `json:"token_valid_after_seconds"`
	TokenValidAfterTimestamp int64  `json:"token_valid_after_timestamp"`
	TokenValidSeconds        int    `json:"token_valid_seconds"`
	ServerTimestamp          int64  `json:"server_timestamp"`
	Error                    string `json:"error"`
}

// GetTokenV2 POST /api/v2/get-token
//
// 表单给出 md5，或者恰好一个文件（先准入再计算指纹），两者同时给出视为错误.
func (h *Handlers) GetTokenV2(c *gin.Context) {
	form, err := parseUploadForm(c, 1, h.svc.Upload.MaxFileBytes)
	if err != nil {
		badRequest(c, msgMD5OrOneFile)
		return
	}

	fingerprint := form.Fields["md5"]
	if fingerprint != "" && form.fileCount() > 0 {
		badRequest(c, msgMD5OrOneFile)
		return
	}

	if fingerprint == "" {
		if form.fileCount() != 1 {
			badRequest(c, msgMD5OrOneFile)
			return
		}

		f := form.Files[0]

		fingerprint, _, err = h.imagesOnly.Admit(f.Name, f.Data, f.MIME)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	if !rule.IsFingerprint(fingerprint) {
		badRequest(c, msgInvalidMD5)
		return
	}

	tok, err := h.svc.Tokens.Issue(c.Request.Context(), fingerprint)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		Token:                    tok.Secret,
		TokenValidAfterSeconds:   tok.Delay,
		TokenValidAfterTimestamp: tok.ValidFrom.Unix(),
		TokenValidSeconds:        tok.ValidSeconds,
		ServerTimestamp:          tok.ServerTime.Unix(),
	})
}

// UploadV2 POST /api/v2/upload
//
// 文件先通过准入，超限文件只读到上限加一字节，不能拿截断内容去匹配令牌.
// 令牌必须与文件指纹匹配且处于有效窗口.
func (h *Handlers) UploadV2(c *gin.Context) {
	form, err := parseUploadForm(c, 1, h.svc.Upload.MaxFileBytes)
	if err != nil || form.fileCount() != 1 || form.Fields["token"] == "" {
		badRequest(c, msgTokenAndFile)
		return
	}

	f := form.Files[0]
	ctx := c.Request.Context()

	fingerprint, _, err := h.imagesOnly.Admit(f.Name, f.Data, f.MIME)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(endpointV2, metrics.ResultRejected).Inc()
		respondError(c, err)

		return
	}

	if err := h.svc.Tokens.Validate(ctx, fingerprint, form.Fields["token"]); err != nil {
		metrics.UploadsTotal.WithLabelValues(endpointV2, metrics.ResultRejected).Inc()
		respondError(c, err)

		return
	}

	ref, err := h.svc.Photos.Ingest(ctx, service.IngestInput{
		Name:   f.Name,
		Data:   f.Data,
		MIME:   f.MIME,
		Origin: middleware.ClientOrigin(c),
	})
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(endpointV2, uploadResult(err)).Inc()
		respondError(c, err)

		return
	}

	metrics.UploadsTotal.WithLabelValues(endpointV2, createdResult(ref)).Inc()
	c.JSON(http.StatusOK, gin.H{"image": ref.URL, "error": ""})
}

func uploadResult(err error) string {
	if errors.Is(err, service.ErrAdmission) {
		return metrics.ResultRejected
	}

	return metrics.ResultFailed
}

func createdResult(ref service.PhotoRef) string {
	if ref.Created {
		return metrics.ResultCreated
	}

	return metrics.ResultDuplicate
}
