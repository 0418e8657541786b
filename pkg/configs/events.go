package configs

import "github.com/spf13/viper"

// EventsConfig 控制事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled bool                `mapstructure:"enabled"` // 总开关
	Photo   PhotoEventsConfig   `mapstructure:"photo"`
	Gallery GalleryEventsConfig `mapstructure:"gallery"`
}

// PhotoEventsConfig 图片领域事件.
type PhotoEventsConfig struct {
	Stored bool `mapstructure:"stored"`
	Tagged bool `mapstructure:"tagged"`
}

// GalleryEventsConfig 相册领域事件.
type GalleryEventsConfig struct {
	Created bool `mapstructure:"created"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("events.enabled", true)

	v.SetDefault("events.photo.stored", true)
	v.SetDefault("events.photo.tagged", false)
	v.SetDefault("events.gallery.created", true)
}
