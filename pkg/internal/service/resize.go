package service

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strconv"
	"strings"

	"github.com/nfnt/resize"
)

const minResizeWidth = 10

// ParseSize 解析 ?size=，小数部分截断，无法解析返回 0.
func ParseSize(raw string) int {
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		raw = raw[:i]
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}

	return n
}

// Resizable 只有 jpg/jpeg/png 支持缩放.
func Resizable(format string) bool {
	switch format {
	case "jpg", "jpeg", "png":
		return true
	default:
		return false
	}
}

// TargetWidth size 超出原宽或小于 10 时返回原宽，即不缩放.
func TargetWidth(size, width int) int {
	if size > width || size < minResizeWidth {
		return width
	}

	return size
}

// Resize 按宽度等比缩放，编码格式与原图一致.
func Resize(data []byte, format string, width int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	scaled := resize.Resize(uint(width), 0, img, resize.Lanczos3)

	var buf bytes.Buffer

	switch format {
	case "png":
		err = png.Encode(&buf, scaled)
	default:
		err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 90})
	}

	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	return buf.Bytes(), nil
}
