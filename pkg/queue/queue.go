// Package queue 定义领域事件的信封、主题与负载，并提供发布/解析的封装.
//
// 消息信封 JSON 结构
//
//	{
//	  "header": {
//	    "topic": "smd.photo.stored",
//	    "trace_id": "optional-trace-id",
//	    "producer": "staticmd",
//	    "occurred_at": "2025-01-02T03:04:05.123456Z",
//	    "version": "v1"
//	  },
//	  "payload": { ... 取决于具体主题 ... }
//	}
//
// 发布/订阅示例
//
//	msg, _ := queue.NewWatermillMessage(queue.TopicPhotoStored, payload, queue.WithProducer("staticmd"), queue.At(clock.Now()))
//	_ = client.Publish(ctx, queue.TopicPhotoStored, msg)
//
//	client.Handle("tagger", queue.TopicPhotoStored, func(m *message.Message) error {
//		env, err := queue.ParsePhotoStored(m)
//		...
//	})
//
// 消息 ID 为 ULID，按 occurred_at 单调递增，可直接用作去重键.
// occurred_at 为 UTC RFC3339；消费者应忽略未知字段.
package queue

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
	"github.com/oklog/ulid"
)

// PayloadVersionV1 当前信封版本.
const PayloadVersionV1 = "v1"

// Publisher 是 mq.Client 的发布面.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// HeaderOption 修改事件头.
type HeaderOption func(*EventHeader)

// WithTraceID 关联 otel trace.
func WithTraceID(id string) HeaderOption { return func(h *EventHeader) { h.TraceID = id } }

// WithProducer 设置 Producer.
func WithProducer(p string) HeaderOption { return func(h *EventHeader) { h.Producer = p } }

// At 指定事件时间，未指定时取当前时间.
func At(t time.Time) HeaderOption { return func(h *EventHeader) { h.OccurredAt = t.UTC() } }

// NewEventHeader 便捷创建事件头.
func NewEventHeader(topic string, opts ...HeaderOption) EventHeader {
	hdr := EventHeader{Topic: topic, Version: PayloadVersionV1}
	for _, opt := range opts {
		opt(&hdr)
	}

	if hdr.OccurredAt.IsZero() {
		hdr.OccurredAt = time.Now().UTC()
	}

	return hdr
}

// NewWatermillMessage 封装信封并把头部字段同步到 watermill 元数据.
func NewWatermillMessage[T any](topic string, payload T, opts ...HeaderOption) (*message.Message, error) {
	header := NewEventHeader(topic, opts...)

	data, err := sonic.Marshal(Message[T]{Header: header, Payload: payload})
	if err != nil {
		return nil, err
	}

	id, err := ulid.New(ulid.Timestamp(header.OccurredAt), rand.Reader)
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(id.String(), data)
	for k, v := range map[string]string{
		"topic":       topic,
		"occurred_at": header.OccurredAt.Format(time.RFC3339Nano),
		"version":     header.Version,
		"trace_id":    header.TraceID,
		"producer":    header.Producer,
	} {
		if v != "" {
			msg.Metadata.Set(k, v)
		}
	}

	return msg, nil
}

// ParseWatermillMessage 解出泛型负载.
func ParseWatermillMessage[T any](msg *message.Message) (Message[T], error) {
	var m Message[T]

	err := sonic.Unmarshal(msg.Payload, &m)

	return m, err
}
