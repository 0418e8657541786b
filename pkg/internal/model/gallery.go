package model

import "time"

// Gallery 相册，按成员集合去重. MembershipHash 是 MembershipKey 的 sha256，
// 部分数据库无法对长文本建唯一索引.
type Gallery struct {
	ID             string `gorm:"primaryKey;size:26"  json:"id"`
	MembershipKey  string `gorm:"type:text"           json:"membership_key"`
	MembershipHash string `gorm:"size:64;uniqueIndex" json:"-"`
	// PhotoIDsJSON 成员图片的 storage_key，按展示顺序
	PhotoIDsJSON string    `gorm:"column:photo_ids;type:text" json:"-"`
	LinksJSON    string    `gorm:"column:links;type:text"     json:"-"`
	TagsJSON     string    `gorm:"column:tags;type:text"      json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Gallery) TableName() string { return "galleries" }

// PhotoIDs 解码成员列表.
func (g *Gallery) PhotoIDs() []string { return decodeList(g.PhotoIDsJSON) }

// Links 解码链接列表.
func (g *Gallery) Links() []string { return decodeList(g.LinksJSON) }

// PrimaryCode 返回第一个链接码.
func (g *Gallery) PrimaryCode() string {
	if links := g.Links(); len(links) > 0 {
		return links[0]
	}

	return ""
}
