package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/staticmd/pkg/configs"
)

// Emitter 按 events.* 开关发布领域事件. nil Emitter 或 nil Publisher 时静默.
type Emitter struct {
	pub   Publisher
	cfg   configs.EventsConfig
	clock clockwork.Clock
}

// NewEmitter 创建事件发布器，事件时间取自 clock.
func NewEmitter(pub Publisher, cfg configs.EventsConfig, clock clockwork.Clock) *Emitter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Emitter{pub: pub, cfg: cfg, clock: clock}
}

func (e *Emitter) enabled(topic string) bool {
	if e == nil || e.pub == nil || !e.cfg.Enabled {
		return false
	}

	switch topic {
	case TopicPhotoStored:
		return e.cfg.Photo.Stored
	case TopicPhotoTagged:
		return e.cfg.Photo.Tagged
	case TopicGalleryCreated:
		return e.cfg.Gallery.Created
	default:
		return false
	}
}

// PhotoStored 发布 smd.photo.stored.
func (e *Emitter) PhotoStored(ctx context.Context, p PhotoStoredPayload) error {
	return publish(ctx, e, TopicPhotoStored, p)
}

// PhotoTagged 发布 smd.photo.tagged.
func (e *Emitter) PhotoTagged(ctx context.Context, p PhotoTaggedPayload) error {
	return publish(ctx, e, TopicPhotoTagged, p)
}

// GalleryCreated 发布 smd.gallery.created.
func (e *Emitter) GalleryCreated(ctx context.Context, p GalleryCreatedPayload) error {
	return publish(ctx, e, TopicGalleryCreated, p)
}

func publish[T any](ctx context.Context, e *Emitter, topic string, payload T) error {
	if !e.enabled(topic) {
		return nil
	}

	opts := []HeaderOption{WithProducer(configs.AppName), At(e.clock.Now())}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		opts = append(opts, WithTraceID(sc.TraceID().String()))
	}

	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return e.pub.Publish(ctx, topic, msg)
}

// ParsePhotoStored 解析 smd.photo.stored.
func ParsePhotoStored(msg *message.Message) (Message[PhotoStoredPayload], error) {
	return ParseWatermillMessage[PhotoStoredPayload](msg)
}

// ParsePhotoTagged 解析 smd.photo.tagged.
func ParsePhotoTagged(msg *message.Message) (Message[PhotoTaggedPayload], error) {
	return ParseWatermillMessage[PhotoTaggedPayload](msg)
}

// ParseGalleryCreated 解析 smd.gallery.created.
func ParseGalleryCreated(msg *message.Message) (Message[GalleryCreatedPayload], error) {
	return ParseWatermillMessage[GalleryCreatedPayload](msg)
}
