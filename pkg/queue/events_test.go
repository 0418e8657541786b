package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jonboulle/clockwork"
	"github.com/oklog/ulid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/queue"
)

type recorder struct {
	topics []string
	msgs   []*message.Message
}

func (r *recorder) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	for _, m := range msgs {
		r.topics = append(r.topics, topic)
		r.msgs = append(r.msgs, m)
	}

	return nil
}

func TestEmitterRespectsToggles(t *testing.T) {
	rec := &recorder{}
	cfg := configs.EventsConfig{
		Enabled: true,
		Photo:   configs.PhotoEventsConfig{Stored: true, Tagged: false},
		Gallery: configs.GalleryEventsConfig{Created: true},
	}
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	e := queue.NewEmitter(rec, cfg, clockwork.NewFakeClockAt(at))
	ctx := context.Background()

	require.NoError(t, e.PhotoStored(ctx, queue.PhotoStoredPayload{Fingerprint: "f", StorageKey: "f.png"}))
	require.NoError(t, e.PhotoTagged(ctx, queue.PhotoTaggedPayload{Fingerprint: "f"}))
	require.NoError(t, e.GalleryCreated(ctx, queue.GalleryCreatedPayload{GalleryID: "g", Code: "abc123"}))

	assert.Equal(t, []string{queue.TopicPhotoStored, queue.TopicGalleryCreated}, rec.topics)

	env, err := queue.ParsePhotoStored(rec.msgs[0])
	require.NoError(t, err)
	assert.Equal(t, "f.png", env.Payload.StorageKey)
	assert.Equal(t, queue.TopicPhotoStored, env.Header.Topic)
	assert.Equal(t, configs.AppName, env.Header.Producer)
	assert.True(t, at.Equal(env.Header.OccurredAt))
	assert.Equal(t, queue.PayloadVersionV1, rec.msgs[0].Metadata.Get("version"))
	assert.Empty(t, rec.msgs[0].Metadata.Get("trace_id"))

	id, err := ulid.Parse(rec.msgs[0].UUID)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(at), id.Time())
}

func TestEmitterDisabled(t *testing.T) {
	rec := &recorder{}
	e := queue.NewEmitter(rec, configs.EventsConfig{Enabled: false, Photo: configs.PhotoEventsConfig{Stored: true}}, nil)

	require.NoError(t, e.PhotoStored(context.Background(), queue.PhotoStoredPayload{}))
	assert.Empty(t, rec.topics)

	var nilEmitter *queue.Emitter
	assert.NoError(t, nilEmitter.GalleryCreated(context.Background(), queue.GalleryCreatedPayload{}))
}
