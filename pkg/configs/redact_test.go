package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedacted(t *testing.T) {
	var c AppConfig
	c.Upload.SharedSecret = "s3cr3t"
	c.Auth.AdminToken = "tok"
	c.S3.SecretAccessKey = "minio"
	c.Server.Port = 8080

	r := c.Redacted()

	assert.Equal(t, RedactedValue, r.Upload.SharedSecret)
	assert.Equal(t, RedactedValue, r.Auth.AdminToken)
	assert.Equal(t, RedactedValue, r.S3.SecretAccessKey)
	assert.Empty(t, r.Tagging.APIKey)
	assert.Equal(t, 8080, r.Server.Port)

	// 原配置不受影响
	assert.Equal(t, "s3cr3t", c.Upload.SharedSecret)
}
