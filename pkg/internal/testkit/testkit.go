// Package testkit 为测试提供内存数据库、内存对象存储、内存 KV 与假时钟.
package testkit

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/model"
	"github.com/yeisme/staticmd/pkg/internal/storage/blob"
	"github.com/yeisme/staticmd/pkg/internal/storage/kv"
)

// SharedSecret Config 中 v4 使用的口令.
const SharedSecret = "test-shared-secret"

// Epoch 假时钟的起点.
var Epoch = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// Env 一组相互独立的内存依赖.
type Env struct {
	DB    *gorm.DB
	Blob  *blob.Memory
	KV    *kv.MemoryKV
	Clock *clockwork.FakeClock
	Pub   *Recorder
}

// New 每次调用得到一个全新的环境.
func New(t testing.TB) *Env {
	t.Helper()

	clock := clockwork.NewFakeClockAt(Epoch)

	return &Env{
		DB:    DB(t),
		Blob:  blob.NewMemory(),
		KV:    kv.NewMemoryKVWithClock(clock.Now),
		Clock: clock,
		Pub:   &Recorder{},
	}
}

// DB 打开已迁移的内存 SQLite.
func DB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(model.All()...))

	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

// Config 默认配置，v4 口令为 SharedSecret，事件全部开启.
func Config() *configs.AppConfig {
	cfg := configs.Defaults()
	cfg.Upload.SharedSecret = SharedSecret
	cfg.Events.Enabled = true
	cfg.Events.Photo.Stored = true
	cfg.Events.Photo.Tagged = true
	cfg.Events.Gallery.Created = true

	return &cfg
}

// Recorder 记录发布的消息.
type Recorder struct {
	mu   sync.Mutex
	msgs map[string][]*message.Message
}

func (r *Recorder) Publish(_ context.Context, topic string, msgs ...*message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.msgs == nil {
		r.msgs = make(map[string][]*message.Message)
	}

	r.msgs[topic] = append(r.msgs[topic], msgs...)

	return nil
}

// Messages 返回某主题已发布的消息.
func (r *Recorder) Messages(topic string) []*message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]*message.Message(nil), r.msgs[topic]...)
}

// JPEG 生成 w×h 的纯色 JPEG，shade 不同内容不同.
func JPEG(t testing.TB, w, h int, shade uint8) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(w, h, shade), &jpeg.Options{Quality: 90}))

	return buf.Bytes()
}

// PNG 生成 w×h 的纯色 PNG.
func PNG(t testing.TB, w, h int, shade uint8) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h, shade)))

	return buf.Bytes()
}

func solid(w, h int, shade uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := color.RGBA{R: shade, G: 255 - shade, B: shade / 2, A: 255}

	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}

	return img
}
