package blob_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/staticmd/pkg/internal/storage/blob"
)

func TestMemoryPutOpen(t *testing.T) {
	ctx := context.Background()
	m := blob.NewMemory()

	err := m.Put(ctx, blob.Object{
		Key:          "uploads/abc.png",
		Body:         bytes.NewReader([]byte("png")),
		Size:         3,
		ContentType:  "image/png",
		CacheControl: "public, max-age=315360000",
	})
	require.NoError(t, err)

	rc, info, err := m.Open(ctx, "uploads/abc.png")
	require.NoError(t, err)

	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, int64(3), info.Size)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, 1, m.Puts())
	assert.Equal(t, "public, max-age=315360000", m.CacheControl("uploads/abc.png"))

	_, _, err = m.Open(ctx, "uploads/missing.png")
	assert.ErrorIs(t, err, blob.ErrNotExist)
}
