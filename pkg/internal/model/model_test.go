package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListCodec(t *testing.T) {
	assert.Equal(t, "[]", EncodeList(nil))
	assert.Equal(t, `["a.png","a"]`, EncodeList([]string{"a.png", "a"}))
	assert.Equal(t, []string{"a.png", "a"}, DecodeList(`["a.png","a"]`))
	assert.Nil(t, DecodeList(""))
	assert.Nil(t, DecodeList("not json"))

	g := Gallery{LinksJSON: EncodeList([]string{"abc123"})}
	assert.Equal(t, "abc123", g.PrimaryCode())
	assert.Equal(t, "", (&Gallery{}).PrimaryCode())
}
