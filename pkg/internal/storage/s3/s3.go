// Package s3 处理S3存储操作，实现 blob.Store.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/storage/blob"
	nlog "github.com/yeisme/staticmd/pkg/log"
)

// Client 包装 MinIO 客户端.
type Client struct {
	*minio.Client
	cfg configs.S3Config
}

var _ blob.Store = (*Client)(nil)

// New 初始化 MinIO 客户端，若 bucket 不存在则尝试创建.
func New(ctx context.Context, cfg configs.S3Config) (*Client, error) {
	endpoint := cfg.Endpoint
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			cfg.UseSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo(configs.AppName, configs.AppVersion)

	exists, err := cli.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.BucketName, err)
	}

	if !exists {
		if err := cli.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.BucketName, err)
		}

		nlog.Logger().Info().Str("bucket", cfg.BucketName).Msg("bucket created")
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.BucketName).Msg("s3 connected")

	return &Client{Client: cli, cfg: cfg}, nil
}

// Put 写入对象，键自动加上配置的前缀.
func (c *Client) Put(ctx context.Context, obj blob.Object) error {
	_, err := c.PutObject(ctx, c.cfg.BucketName, c.cfg.ObjectKey(obj.Key), obj.Body, obj.Size, minio.PutObjectOptions{
		ContentType:  obj.ContentType,
		CacheControl: obj.CacheControl,
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", obj.Key, err)
	}

	return nil
}

// Open 读取对象. minio 的 GetObject 是惰性的，先 Stat 以便区分不存在.
func (c *Client) Open(ctx context.Context, key string) (io.ReadCloser, blob.Info, error) {
	objectKey := c.cfg.ObjectKey(key)

	obj, err := c.GetObject(ctx, c.cfg.BucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, blob.Info{}, fmt.Errorf("get object %s: %w", key, err)
	}

	st, err := obj.Stat()
	if err != nil {
		_ = obj.Close()

		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, blob.Info{}, fmt.Errorf("%w: %s", blob.ErrNotExist, key)
		}

		return nil, blob.Info{}, fmt.Errorf("stat object %s: %w", key, err)
	}

	return obj, blob.Info{Key: key, Size: st.Size, ContentType: st.ContentType}, nil
}

// HealthCheck 检查 bucket 可访问.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.BucketExists(ctx, c.cfg.BucketName)
	return err
}

// Close 接口兼容，minio 客户端无需关闭.
func (c *Client) Close() error {
	return nil
}
