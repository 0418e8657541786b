package configs

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultPublicBaseURL     = "https://static.md/"
	DefaultMaxFiles          = 20
	DefaultMaxFileBytes      = 10 * 1024 * 1024
	DefaultTokenValidSeconds = 30
	DefaultGalleryCodeLength = 6
)

// UploadConfig 上传协议（v2 令牌上传与 v4 批量上传）相关配置.
type UploadConfig struct {
	PublicBaseURL string `mapstructure:"public_base_url" rule:"required,url"`
	// SharedSecret v4 接口的共享口令，为空时 v4 一律拒绝.
	SharedSecret string `mapstructure:"shared_secret"`
	MaxFiles     int    `mapstructure:"max_files"      rule:"min=1,max=200"`
	MaxFileBytes int64  `mapstructure:"max_file_bytes" rule:"min=1"`
	AllowVideo   bool   `mapstructure:"allow_video"`
	Host         string `mapstructure:"host"`

	TokenValidSeconds    int           `mapstructure:"token_valid_seconds"     rule:"min=1"`
	TokenMinDelaySeconds int           `mapstructure:"token_min_delay_seconds" rule:"min=0"`
	TokenMaxDelaySeconds int           `mapstructure:"token_max_delay_seconds" rule:"gtefield=TokenMinDelaySeconds"`
	TokenRetention       time.Duration `mapstructure:"token_retention"`

	GalleryCodeLength int           `mapstructure:"gallery_code_length" rule:"min=4,max=32"`
	LinkCacheTTL      time.Duration `mapstructure:"link_cache_ttl"`
}

// PublicURL 拼接对外访问地址.
func (c UploadConfig) PublicURL(code string) string {
	base := c.PublicBaseURL
	if base == "" {
		base = DefaultPublicBaseURL
	}

	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	return base + code
}

func (c *UploadConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("upload.public_base_url", DefaultPublicBaseURL)
	v.SetDefault("upload.shared_secret", "")
	v.SetDefault("upload.max_files", DefaultMaxFiles)
	v.SetDefault("upload.max_file_bytes", DefaultMaxFileBytes)
	v.SetDefault("upload.allow_video", false)
	v.SetDefault("upload.host", "static.md")

	v.SetDefault("upload.token_valid_seconds", DefaultTokenValidSeconds)
	v.SetDefault("upload.token_min_delay_seconds", 1)
	v.SetDefault("upload.token_max_delay_seconds", 3)
	v.SetDefault("upload.token_retention", "24h")

	v.SetDefault("upload.gallery_code_length", DefaultGalleryCodeLength)
	v.SetDefault("upload.link_cache_ttl", "10m")
}
