// Package storage 聚合文档存储、对象存储、KV 与消息队列客户端.
//
// Example:
//
//	mgr, err := storage.New(ctx, configs.GetConfig())
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	db := mgr.GetDBClient()
//	blobs := mgr.GetBlobStore()
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/model"
	"github.com/yeisme/staticmd/pkg/internal/storage/blob"
	dbc "github.com/yeisme/staticmd/pkg/internal/storage/db"
	"github.com/yeisme/staticmd/pkg/internal/storage/kv"
	"github.com/yeisme/staticmd/pkg/internal/storage/mq"
	s3c "github.com/yeisme/staticmd/pkg/internal/storage/s3"
	nlog "github.com/yeisme/staticmd/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB   *dbc.Client
	Blob blob.Store
	KV   *kv.Client
	MQ   *mq.Client
}

// New 按配置依次初始化各存储，任一失败时关闭已打开的资源.
func New(ctx context.Context, cfg *configs.AppConfig) (m *Manager, err error) {
	m = &Manager{}

	defer func() {
		if err != nil {
			_ = m.Close()
		}
	}()

	if m.DB, err = dbc.New(ctx, cfg.DB,
		dbc.WithMetrics(cfg.Metrics.Enabled),
		dbc.WithDebug(cfg.Server.Debug),
	); err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	if cfg.DB.AutoMigrate {
		if err = m.DB.Migrate(ctx, model.All()...); err != nil {
			return nil, err
		}
	}

	switch cfg.S3.Driver {
	case configs.BlobDriverMemory:
		m.Blob = blob.NewMemory()

		nlog.Logger().Warn().Msg("使用内存对象存储，重启后图片丢失")
	default:
		if m.Blob, err = s3c.New(ctx, cfg.S3); err != nil {
			return nil, fmt.Errorf("init s3: %w", err)
		}
	}

	if m.KV, err = kv.NewKVClient(ctx, cfg.KV); err != nil {
		return nil, fmt.Errorf("init kv: %w", err)
	}

	if m.MQ, err = mq.New(ctx, cfg.MQ, cfg.Metrics); err != nil {
		return nil, fmt.Errorf("init mq: %w", err)
	}

	nlog.Logger().Info().Msg("storage manager initialized")

	return m, nil
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetBlobStore 获取对象存储.
func (m *Manager) GetBlobStore() blob.Store {
	return m.Blob
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kv.Client {
	return m.KV
}

// GetMQClient 获取消息队列客户端.
func (m *Manager) GetMQClient() *mq.Client {
	return m.MQ
}

// Close 关闭全部资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
