// Package context 把进程级资源与请求标识挂到 context 上，并据此派生带追踪字段的日志.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/staticmd/pkg/internal/storage"
	"github.com/yeisme/staticmd/pkg/internal/storage/blob"
	dbc "github.com/yeisme/staticmd/pkg/internal/storage/db"
	kvc "github.com/yeisme/staticmd/pkg/internal/storage/kv"
	mqc "github.com/yeisme/staticmd/pkg/internal/storage/mq"
	nlog "github.com/yeisme/staticmd/pkg/log"
	"github.com/yeisme/staticmd/pkg/scheduler"
)

type (
	managerKey   struct{}
	schedulerKey struct{}
	requestIDKey struct{}
)

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, mgr)
}

// WithScheduler 供 /api/admin/jobs 读取任务列表.
func WithScheduler(ctx context.Context, s *scheduler.Scheduler) context.Context {
	return context.WithValue(ctx, schedulerKey{}, s)
}

// WithRequestID 日志中以 request_id 输出.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetScheduler 未注入时返回 nil.
func GetScheduler(ctx context.Context) *scheduler.Scheduler {
	s, _ := ctx.Value(schedulerKey{}).(*scheduler.Scheduler)
	return s
}

// RequestID 未注入时返回空串.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// GetManager 从 context 中获取 Manager.
func GetManager(ctx context.Context) *storage.Manager {
	mgr, _ := ctx.Value(managerKey{}).(*storage.Manager)
	return mgr
}

// fromManager 管理器缺失时返回零值.
func fromManager[T any](ctx context.Context, get func(*storage.Manager) T) T {
	var zero T
	if mgr := GetManager(ctx); mgr != nil {
		return get(mgr)
	}

	return zero
}

// GetBlobStore 从 context 中获取对象存储.
func GetBlobStore(ctx context.Context) blob.Store {
	return fromManager(ctx, (*storage.Manager).GetBlobStore)
}

// GetDBClient 从 context 中获取 DB 客户端.
func GetDBClient(ctx context.Context) *dbc.Client {
	return fromManager(ctx, (*storage.Manager).GetDBClient)
}

// GetMQClient 从 context 中获取 MQ 客户端.
func GetMQClient(ctx context.Context) *mqc.Client {
	return fromManager(ctx, (*storage.Manager).GetMQClient)
}

// GetKVClient 从 context 中获取 KV 客户端.
func GetKVClient(ctx context.Context) *kvc.Client {
	return fromManager(ctx, (*storage.Manager).GetKVClient)
}

// WithTraceContext 附加 trace_id、span_id 与 request_id.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	lc := logger.With()

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		lc = lc.
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String())
	}

	if id := RequestID(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}

	return lc.Logger()
}

// Logger 返回带追踪信息的全局 logger.
func Logger(ctx context.Context) *zerolog.Logger {
	l := WithTraceContext(ctx, *nlog.Logger())

	return &l
}
