package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/staticmd/pkg/internal/service"
	"github.com/yeisme/staticmd/pkg/internal/testkit"
)

func TestParseSize(t *testing.T) {
	assert.Equal(t, 200, service.ParseSize("200"))
	assert.Equal(t, 200, service.ParseSize("200.75"))
	assert.Equal(t, 0, service.ParseSize("abc"))
	assert.Equal(t, 0, service.ParseSize("-5"))
	assert.Equal(t, 0, service.ParseSize(""))
}

func TestTargetWidth(t *testing.T) {
	assert.Equal(t, 100, service.TargetWidth(500, 100))
	assert.Equal(t, 100, service.TargetWidth(9, 100))
	assert.Equal(t, 10, service.TargetWidth(10, 100))
	assert.Equal(t, 50, service.TargetWidth(50, 100))
}

func TestResizable(t *testing.T) {
	assert.True(t, service.Resizable("jpg"))
	assert.True(t, service.Resizable("png"))
	assert.False(t, service.Resizable("gif"))
	assert.False(t, service.Resizable("svg"))
}

func TestResize(t *testing.T) {
	out, err := service.Resize(testkit.JPEG(t, 100, 50, 4), "jpg", 20)
	require.NoError(t, err)

	w, h := service.Probe(out)
	assert.Equal(t, 20, w)
	assert.Equal(t, 10, h)

	out, err = service.Resize(testkit.PNG(t, 40, 40, 4), "png", 10)
	require.NoError(t, err)

	w, _ = service.Probe(out)
	assert.Equal(t, 10, w)

	_, err = service.Resize([]byte("nope"), "jpg", 10)
	require.Error(t, err)
}
