package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

// BlobDriver 对象存储驱动.
type BlobDriver string

const (
	BlobDriverMinio  BlobDriver = "minio"  // S3 兼容存储
	BlobDriverMemory BlobDriver = "memory" // 进程内存储，仅用于本地调试
)

// S3Config MinIO S3存储配置.
type S3Config struct {
	Driver          BlobDriver `mapstructure:"driver"            rule:"oneof=minio memory"`
	Endpoint        string     `mapstructure:"endpoint"`
	AccessKeyID     string     `mapstructure:"access_key_id"`
	SecretAccessKey string     `mapstructure:"secret_access_key"`
	UseSSL          bool       `mapstructure:"use_ssl"`
	BucketName      string     `mapstructure:"bucket_name"`
	Region          string     `mapstructure:"region"`
	// Prefix 对象键前缀，对应 uploads/{md5}.{ext}.
	Prefix string `mapstructure:"prefix"`
}

const (
	DefaultS3Driver          = BlobDriverMinio  // 默认驱动
	DefaultS3Endpoint        = "localhost:9000" // 默认S3端点
	DefaultS3AccessKeyID     = "minioadmin"     // 默认访问密钥ID
	DefaultS3SecretAccessKey = "minioadmin"     // 默认秘密访问密钥
	DefaultS3UseSSL          = false            // 默认是否使用SSL
	DefaultS3BucketName      = "staticmd"       // 默认存储桶名称
	DefaultS3Region          = "us-east-1"      // 默认区域
	DefaultS3Prefix          = "uploads/"       // 默认对象键前缀
)

// GetEndpointURL 获取完整的端点URL.
func (c *S3Config) GetEndpointURL() string {
	scheme := "http"
	if c.UseSSL {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, c.Endpoint)
}

// ObjectKey 拼接对象键.
func (c *S3Config) ObjectKey(storageKey string) string {
	return c.Prefix + storageKey
}

// setDefaults 设置 S3 配置的默认值.
func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.driver", DefaultS3Driver)
	v.SetDefault("s3.endpoint", DefaultS3Endpoint)
	v.SetDefault("s3.access_key_id", DefaultS3AccessKeyID)
	v.SetDefault("s3.secret_access_key", DefaultS3SecretAccessKey)
	v.SetDefault("s3.use_ssl", DefaultS3UseSSL)
	v.SetDefault("s3.bucket_name", DefaultS3BucketName)
	v.SetDefault("s3.region", DefaultS3Region)
	v.SetDefault("s3.prefix", DefaultS3Prefix)
}
