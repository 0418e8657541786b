package service

import (
	"bytes"
	"crypto/md5" //nolint:gosec // 内容指纹，不用于安全场景
	"encoding/hex"
	"image"
	_ "image/gif" // 注册解码器
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DefaultMaxFileBytes 单文件上限，含边界.
const DefaultMaxFileBytes = 10 * 1024 * 1024

var imageMimes = map[string]string{
	"image/gif":     "gif",
	"image/x-icon":  "ico",
	"image/jpeg":    "jpg",
	"image/png":     "png",
	"image/x-png":   "png",
	"image/svg+xml": "svg",
	"image/bmp":     "bmp",
	"image/webp":    "webp",
}

var videoMimes = map[string]string{
	"video/mp4": "mp4",
}

var formatContentTypes = map[string]string{
	"gif":  "image/gif",
	"ico":  "image/x-icon",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"svg":  "image/svg+xml",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"mp4":  "video/mp4",
}

// ContentTypeFor 按格式返回响应的 Content-Type.
func ContentTypeFor(format string) string {
	if ct, ok := formatContentTypes[format]; ok {
		return ct
	}

	return "application/octet-stream"
}

// IsImageFormat 视频等非图片格式返回 false.
func IsImageFormat(format string) bool {
	ct, ok := formatContentTypes[format]

	return ok && ct != "video/mp4"
}

// Fingerprinter 准入检查与内容指纹.
type Fingerprinter struct {
	MaxBytes   int64
	AllowVideo bool
}

// NewFingerprinter maxBytes <= 0 时使用 DefaultMaxFileBytes.
func NewFingerprinter(maxBytes int64, allowVideo bool) *Fingerprinter {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	return &Fingerprinter{MaxBytes: maxBytes, AllowVideo: allowVideo}
}

// Admit 依次检查类型、格式与大小，通过后返回 md5 十六进制指纹与格式.
func (f *Fingerprinter) Admit(name string, data []byte, mime string) (fingerprint, format string, err error) {
	format, ok := imageMimes[mime]
	if !ok && !f.AllowVideo {
		return "", "", admissionErr(name, "is not image")
	}

	if !ok {
		if format, ok = videoMimes[mime]; !ok {
			return "", "", admissionErr(name, "is not a supported format")
		}
	}

	if int64(len(data)) > f.MaxBytes {
		return "", "", admissionErr(name, "is too big")
	}

	return Fingerprint(data), format, nil
}

// Fingerprint 计算内容 md5.
func Fingerprint(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec

	return hex.EncodeToString(sum[:])
}

// Probe 读取图片尺寸，无法识别时返回 0, 0.
func Probe(data []byte) (width, height int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}

	return cfg.Width, cfg.Height
}
