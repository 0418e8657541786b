package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理时定位来源.
	Topic      string    `json:"topic"`
	TraceID    string    `json:"trace_id,omitempty"`
	Producer   string    `json:"producer,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	Version    string    `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// PhotoStoredPayload 新图片.
type PhotoStoredPayload struct {
	Fingerprint  string `json:"fingerprint"`
	StorageKey   string `json:"storage_key"`
	Format       string `json:"format"`
	ContentType  string `json:"content_type"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	SizeBytes    int64  `json:"size_bytes"`
	URL          string `json:"url"`
	OriginalName string `json:"original_name,omitempty"`
	// Backfill 为 true 表示由补打标任务重新发布.
	Backfill bool `json:"backfill,omitempty"`
}

// PhotoTaggedPayload 标签变更.
type PhotoTaggedPayload struct {
	Fingerprint string   `json:"fingerprint"`
	Tags        []string `json:"tags"`
	Source      string   `json:"source"` // admin / tagger
}

// GalleryCreatedPayload 新相册.
type GalleryCreatedPayload struct {
	GalleryID string   `json:"gallery_id"`
	Code      string   `json:"code"`
	PhotoIDs  []string `json:"photo_ids"`
	URL       string   `json:"url"`
}
