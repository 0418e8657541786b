package model

import "time"

// UploadToken v2 上传令牌，仅在 [ValidFrom, ExpireAt] 内可用，可重复校验.
type UploadToken struct {
	ID          uint      `gorm:"primaryKey"                       json:"-"`
	Fingerprint string    `gorm:"size:32;index:idx_token_lookup"   json:"fingerprint"`
	Secret      string    `gorm:"size:128;index:idx_token_lookup"  json:"-"`
	ValidFrom   time.Time `json:"valid_from"`
	ExpireAt    time.Time `gorm:"index" json:"expire_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (UploadToken) TableName() string { return "upload_tokens" }
