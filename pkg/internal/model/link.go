package model

import "time"

// TargetType 链接指向的实体类型.
type TargetType string

const (
	TargetPhoto   TargetType = "photo"
	TargetGallery TargetType = "gallery"
)

// Link 链接码到实体的间接表，提交后不可变.
type Link struct {
	Code       string     `gorm:"primaryKey;size:64" json:"code"`
	TargetType TargetType `gorm:"size:16"            json:"target_type"`
	// TargetID 图片指纹或相册 ID
	TargetID  string    `gorm:"size:64;index" json:"target_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (Link) TableName() string { return "links" }
