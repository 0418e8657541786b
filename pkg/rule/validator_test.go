package rule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/staticmd/pkg/rule"
)

type uploadForm struct {
	MD5  string `rule:"required,fingerprint"`
	Code string `rule:"omitempty,shortcode"`
}

func TestEngine(t *testing.T) {
	require.NotNil(t, rule.Engine())
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      uploadForm
		wantErr bool
	}{
		{"valid", uploadForm{MD5: "d41d8cd98f00b204e9800998ecf8427e", Code: "aB3xYz"}, false},
		{"valid storage key", uploadForm{MD5: "d41d8cd98f00b204e9800998ecf8427e", Code: "d41d8cd98f00b204e9800998ecf8427e.png"}, false},
		{"missing md5", uploadForm{}, true},
		{"upper case md5", uploadForm{MD5: "D41D8CD98F00B204E9800998ECF8427E"}, true},
		{"short md5", uploadForm{MD5: "d41d8cd9"}, true},
		{"bad code", uploadForm{MD5: "d41d8cd98f00b204e9800998ecf8427e", Code: "../etc"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := rule.ValidateStruct(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateVar(t *testing.T) {
	assert.NoError(t, rule.ValidateVar("https://static.md/", "required,url"))
	assert.Error(t, rule.ValidateVar("not a url", "required,url"))
	assert.NoError(t, rule.ValidateVar(25, "gte=18"))
	assert.Error(t, rule.ValidateVar(15, "gte=18"))
}

func TestIsShortCode(t *testing.T) {
	assert.True(t, rule.IsShortCode("abc123"))
	assert.True(t, rule.IsShortCode("x.webp"))
	assert.False(t, rule.IsShortCode(""))
	assert.False(t, rule.IsShortCode("favicon.ico.bak"))
	assert.False(t, rule.IsShortCode("a/b"))
}

func TestIsFingerprint(t *testing.T) {
	assert.True(t, rule.IsFingerprint("0123456789abcdef0123456789abcdef"))
	assert.False(t, rule.IsFingerprint("0123456789abcdef0123456789abcdeg"))
	assert.False(t, rule.IsFingerprint("0123456789abcdef"))
}
