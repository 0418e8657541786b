package model

import (
	"time"
)

// Photo 图片记录，以内容指纹（md5）为主键，每个指纹只有一条.
type Photo struct {
	Fingerprint string `gorm:"primaryKey;size:32"  json:"fingerprint"`
	// StorageKey 对象键与主链接码，形如 {md5}.{ext}
	StorageKey   string `gorm:"size:64;uniqueIndex" json:"storage_key"`
	Format       string `gorm:"size:16"             json:"format"`
	ContentType  string `gorm:"size:64"             json:"content_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SizeBytes    int64  `json:"size_bytes"`
	OriginalName string `gorm:"size:512"            json:"original_name"`
	Host         string `gorm:"size:255"            json:"host"`
	Blocked      bool   `gorm:"index"               json:"blocked"`

	SeenCount   int64      `gorm:"not null;default:0" json:"seen_count"`
	UploadCount int64      `gorm:"not null;default:1" json:"upload_count"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`

	// LinksJSON 指向本图片的链接码列表 [storage_key, fingerprint]
	LinksJSON string `gorm:"column:links;type:text" json:"-"`
	// TagsJSON 小写去重后的标签列表，比较并交换时按原文匹配
	TagsJSON string `gorm:"column:tags;type:text"  json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Photo) TableName() string { return "photos" }

// Links 解码链接列表.
func (p *Photo) Links() []string { return decodeList(p.LinksJSON) }

// Tags 解码标签列表.
func (p *Photo) Tags() []string { return decodeList(p.TagsJSON) }

// PhotoSource 记录上传来源地址，(fingerprint, address) 唯一，集合并集即条件插入.
type PhotoSource struct {
	ID          uint      `gorm:"primaryKey"                                json:"-"`
	Fingerprint string    `gorm:"size:32;uniqueIndex:idx_photo_source_pair" json:"fingerprint"`
	Address     string    `gorm:"size:255;uniqueIndex:idx_photo_source_pair" json:"address"`
	CreatedAt   time.Time `json:"created_at"`
}

func (PhotoSource) TableName() string { return "photo_sources" }
