package configs

import (
	"time"

	"github.com/spf13/viper"
)

// TaggingConfig 外部图片打标服务.
type TaggingConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	MinScore float64       `mapstructure:"min_score"`
	RPS      float64       `mapstructure:"rps"`
}

func (c *TaggingConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("tagging.enabled", false)
	v.SetDefault("tagging.endpoint", "")
	v.SetDefault("tagging.api_key", "")
	v.SetDefault("tagging.timeout", "10s")
	v.SetDefault("tagging.min_score", 0.7)
	v.SetDefault("tagging.rps", 5.0)
}
