package queue

// 主题命名：smd.<域>.<动作>.
const (
	// TopicPhotoStored 新内容写入对象存储并落库后发布，重复上传不发布.
	TopicPhotoStored = "smd.photo.stored"
	// TopicPhotoTagged 标签合并成功后发布.
	TopicPhotoTagged = "smd.photo.tagged"
	// TopicGalleryCreated 新相册创建后发布，复用已有相册不发布.
	TopicGalleryCreated = "smd.gallery.created"
)

// AllTopics 列出全部主题，CLI 使用.
func AllTopics() []string {
	return []string{TopicPhotoStored, TopicPhotoTagged, TopicGalleryCreated}
}
