// Package handle 实现 HTTP 处理器：v2 令牌上传、v4 批量上传、相册查询、图片读取、管理与健康检查.
package handle

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/staticmd/pkg/context"
	"github.com/yeisme/staticmd/pkg/internal/jobs"
	"github.com/yeisme/staticmd/pkg/internal/service"
)

// 面向用户的错误文案.
const (
	msgInvalidToken   = "Invalid Token"
	msgIncorrectToken = "Incorrect token"
	msgNotFound       = "Not found"
	msgGalleryMissing = "Gallery not found"
	msgInternal       = "Internal error"
	msgMD5OrOneFile   = "md5 or ONE file required"
	msgInvalidMD5     = "Invalid md5"
	msgTokenAndFile   = "token and ONE file required"
	msgNeedFiles      = "At least one file required"
)

// formSlack 除文件外表单字段允许的额外字节.
const formSlack = 1 << 20

// Handlers 持有业务组件，路由层绑定其方法.
type Handlers struct {
	svc    *service.Services
	runner *jobs.Runner
	// imagesOnly v2 接口的准入检查，忽略 upload.allow_video.
	imagesOnly *service.Fingerprinter
}

// New 创建处理器集合. runner 为 nil 时管理接口不能手动触发任务.
func New(svc *service.Services, runner *jobs.Runner) *Handlers {
	return &Handlers{
		svc:        svc,
		runner:     runner,
		imagesOnly: service.NewFingerprinter(svc.Upload.MaxFileBytes, false),
	}
}

// respondError 按错误类型映射状态码，未识别的错误记日志并返回 500.
func respondError(c *gin.Context, err error) {
	var adm *service.AdmissionError

	switch {
	case errors.As(err, &adm):
		c.JSON(http.StatusBadRequest, gin.H{"error": adm.Message})
	case errors.Is(err, service.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"error": msgInvalidToken})
	case errors.Is(err, service.ErrAuthRejected):
		c.JSON(http.StatusForbidden, gin.H{"error": msgIncorrectToken})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
	default:
		ctxPkg.Logger(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
	}
}

type formFile struct {
	Name string
	MIME string
	Data []byte
}

// uploadForm 按到达顺序收集的表单. Overflow 是超出数量上限未读取的文件名.
type uploadForm struct {
	Fields   map[string]string
	Files    []formFile
	Overflow []string
}

// parseUploadForm 流式读取 multipart，最多保留 maxFiles 个文件；单个文件只读 maxBytes+1 字节，
// 足以让准入检查判定过大. 非 multipart 请求只解析普通表单字段.
func parseUploadForm(c *gin.Context, maxFiles int, maxBytes int64) (*uploadForm, error) {
	form := &uploadForm{Fields: map[string]string{}}

	mediaType, params, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		if perr := c.Request.ParseForm(); perr != nil {
			return nil, perr
		}

		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				form.Fields[k] = v[0]
			}
		}

		return form, nil
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, int64(maxFiles+1)*(maxBytes+formSlack))
	reader := multipart.NewReader(body, params["boundary"])

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}

		if err != nil {
			return nil, fmt.Errorf("read multipart: %w", err)
		}

		if err := form.add(part, maxFiles, maxBytes); err != nil {
			return nil, err
		}
	}
}

func (f *uploadForm) add(part *multipart.Part, maxFiles int, maxBytes int64) error {
	defer part.Close()

	if part.FileName() == "" {
		val, err := io.ReadAll(io.LimitReader(part, formSlack))
		if err != nil {
			return fmt.Errorf("read field: %w", err)
		}

		f.Fields[part.FormName()] = string(val)

		return nil
	}

	if len(f.Files) >= maxFiles {
		f.Overflow = append(f.Overflow, part.FileName())
		_, err := io.Copy(io.Discard, part)

		return err
	}

	data, err := io.ReadAll(io.LimitReader(part, maxBytes+1))
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	if _, err := io.Copy(io.Discard, part); err != nil {
		return fmt.Errorf("drain file: %w", err)
	}

	f.Files = append(f.Files, formFile{Name: part.FileName(), MIME: part.Header.Get("Content-Type"), Data: data})

	return nil
}

// fileCount 包括超出上限的文件.
func (f *uploadForm) fileCount() int { return len(f.Files) + len(f.Overflow) }

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
