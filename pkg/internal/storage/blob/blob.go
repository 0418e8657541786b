// Package blob 定义对象存储的最小接口，图片字节只经由它读写.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist 对象不存在.
var ErrNotExist = errors.New("blob: object does not exist")

// Object 描述一次写入.
type Object struct {
	Key          string
	Body         io.Reader
	Size         int64
	ContentType  string
	CacheControl string
}

// Info 对象元数据.
type Info struct {
	Key         string
	Size        int64
	ContentType string
}

// Store 对象存储.
type Store interface {
	Put(ctx context.Context, obj Object) error
	// Open 返回对象内容，调用方负责关闭.
	Open(ctx context.Context, key string) (io.ReadCloser, Info, error)
	HealthCheck(ctx context.Context) error
}
