package configs

// RedactedValue 替换敏感配置项时使用的占位符.
const RedactedValue = "******"

// Redacted 返回隐去口令与密钥的配置副本，用于日志与 config debug 输出.
func (c AppConfig) Redacted() AppConfig {
	for _, s := range []*string{
		&c.DB.Password,
		&c.S3.SecretAccessKey,
		&c.KV.Redis.Password,
		&c.KV.NATS.Password,
		&c.MQ.Common.Password,
		&c.MQ.Redis.Password,
		&c.MQ.NATS.JWT,
		&c.MQ.NATS.NKey,
		&c.Auth.AdminToken,
		&c.Upload.SharedSecret,
		&c.Tagging.APIKey,
	} {
		if *s != "" {
			*s = RedactedValue
		}
	}

	return c
}
