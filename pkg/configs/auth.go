package configs

import "github.com/spf13/viper"

// AuthConfig 管理接口（/api/admin）认证，优先识别 oauth2-proxy 注入的请求头。
type AuthConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AdminToken    string `mapstructure:"admin_token"`     // Authorization: Bearer <admin_token>
	DevAllowQuery bool   `mapstructure:"dev_allow_query"` // 开发模式允许 ?user= 便于本地调试
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.admin_token", "")
	v.SetDefault("auth.dev_allow_query", false)
}
