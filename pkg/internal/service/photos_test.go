package service_test

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/staticmd/pkg/internal/model"
	"github.com/yeisme/staticmd/pkg/internal/service"
	"github.com/yeisme/staticmd/pkg/internal/testkit"
	"github.com/yeisme/staticmd/pkg/queue"
)

func TestIngestDeduplicates(t *testing.T) {
	svc, env := newServices(t)
	ctx := context.Background()
	data := testkit.JPEG(t, 40, 30, 1)

	first, err := svc.Photos.Ingest(ctx, service.IngestInput{Name: "a.jpg", Data: data, MIME: "image/jpeg", Origin: "10.0.0.1"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, first.Fingerprint+".jpg", first.StorageKey)
	assert.Equal(t, "https://static.md/"+first.StorageKey, first.URL)
	assert.Equal(t, 40, first.Width)
	assert.Equal(t, 30, first.Height)
	assert.Equal(t, service.BlobCacheControl, env.Blob.CacheControl(first.StorageKey))

	second, err := svc.Photos.Ingest(ctx, service.IngestInput{Name: "copy.jpg", Data: data, MIME: "image/jpeg", Origin: "10.0.0.2"})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.StorageKey, second.StorageKey)
	assert.Equal(t, first.URL, second.URL)

	_, err = svc.Photos.Ingest(ctx, service.IngestInput{Name: "again.jpg", Data: data, MIME: "image/jpeg", Origin: "10.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, 1, env.Blob.Puts())

	var photos []model.Photo
	require.NoError(t, env.DB.Find(&photos).Error)
	require.Len(t, photos, 1)
	assert.EqualValues(t, 3, photos[0].UploadCount)
	assert.Equal(t, "a.jpg", photos[0].OriginalName)
	assert.Equal(t, "static.md", photos[0].Host)
	assert.Equal(t, []string{first.StorageKey, first.Fingerprint}, photos[0].Links())

	var sources []model.PhotoSource
	require.NoError(t, env.DB.Order("address").Find(&sources).Error)
	require.Len(t, sources, 2)
	assert.Equal(t, "10.0.0.1", sources[0].Address)
	assert.Equal(t, "10.0.0.2", sources[1].Address)

	// 两个链接都指向同一指纹
	for _, code := range []string{first.StorageKey, first.Fingerprint} {
		link, err := svc.Links.Resolve(ctx, code)
		require.NoError(t, err)
		assert.Equal(t, model.TargetPhoto, link.TargetType)
		assert.Equal(t, first.Fingerprint, link.TargetID)
	}

	stored := env.Pub.Messages(queue.TopicPhotoStored)
	require.Len(t, stored, 1)

	env2, err := queue.ParsePhotoStored(stored[0])
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, env2.Payload.Fingerprint)
	assert.Equal(t, "image/jpeg", env2.Payload.ContentType)
}

func TestIngestConcurrentDuplicates(t *testing.T) {
	svc, env := newServices(t)
	data := testkit.JPEG(t, 24, 24, 9)

	const uploads, origins = 12, 3

	refs := make([]service.PhotoRef, uploads)
	errs := make([]error, uploads)

	var wg sync.WaitGroup
	for i := range uploads {
		wg.Add(1)

		go func() {
			defer wg.Done()

			refs[i], errs[i] = svc.Photos.Ingest(context.Background(), service.IngestInput{
				Name:   "same.jpg",
				Data:   data,
				MIME:   "image/jpeg",
				Origin: fmt.Sprintf("10.0.0.%d", i%origins),
			})
		}()
	}
	wg.Wait()

	created := 0
	for i := range uploads {
		require.NoError(t, errs[i])
		assert.Equal(t, refs[0].URL, refs[i].URL)

		if refs[i].Created {
			created++
		}
	}
	assert.Equal(t, 1, created)

	var photo model.Photo
	require.NoError(t, env.DB.Take(&photo).Error)
	assert.EqualValues(t, uploads, photo.UploadCount)

	var n int64
	require.NoError(t, env.DB.Model(&model.Photo{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	require.NoError(t, env.DB.Model(&model.PhotoSource{}).Count(&n).Error)
	assert.EqualValues(t, origins, n)

	require.NoError(t, env.DB.Model(&model.Link{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)

	assert.Len(t, env.Pub.Messages(queue.TopicPhotoStored), 1)
}

func TestIngestRejectsBeforeWriting(t *testing.T) {
	svc, env := newServices(t)

	_, err := svc.Photos.Ingest(context.Background(), service.IngestInput{Name: "x.txt", Data: []byte("hi"), MIME: "text/plain"})
	require.ErrorIs(t, err, service.ErrAdmission)
	assert.Equal(t, `"x.txt" is not image`, err.Error())
	assert.Zero(t, env.Blob.Puts())

	var n int64
	require.NoError(t, env.DB.Model(&model.Photo{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestIngestUnknownDimensions(t *testing.T) {
	svc, _ := newServices(t)

	ref, err := svc.Photos.Ingest(context.Background(), service.IngestInput{Name: "i.svg", Data: []byte("<svg/>"), MIME: "image/svg+xml"})
	require.NoError(t, err)
	assert.True(t, ref.Created)
	assert.Zero(t, ref.Width)
	assert.Zero(t, ref.Height)
}

func TestGetAndOpen(t *testing.T) {
	svc, env := newServices(t)
	ctx := context.Background()
	data := testkit.PNG(t, 8, 8, 3)

	ref, err := svc.Photos.Ingest(ctx, service.IngestInput{Name: "p.png", Data: data, MIME: "image/png"})
	require.NoError(t, err)

	p, err := svc.Photos.Get(ctx, ref.Fingerprint)
	require.NoError(t, err)

	rc, err := svc.Photos.Open(ctx, p)
	require.NoError(t, err)

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, data, got)

	env.Blob.Delete(ref.StorageKey)
	_, err = svc.Photos.Open(ctx, p)
	require.ErrorIs(t, err, service.ErrNotFound)

	require.NoError(t, env.DB.Model(&model.Photo{}).Where("fingerprint = ?", ref.Fingerprint).Update("blocked", true).Error)
	_, err = svc.Photos.Get(ctx, ref.Fingerprint)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestRecordView(t *testing.T) {
	svc, env := newServices(t)
	ctx := context.Background()

	ref, err := svc.Photos.Ingest(ctx, service.IngestInput{Name: "p.png", Data: testkit.PNG(t, 2, 2, 9), MIME: "image/png"})
	require.NoError(t, err)

	env.Clock.Advance(time.Hour)
	svc.Photos.RecordView(ctx, ref.Fingerprint)
	svc.Photos.RecordView(ctx, ref.Fingerprint)
	// 不存在的指纹不报错
	svc.Photos.RecordView(ctx, "0123456789abcdef0123456789abcdef")

	var p model.Photo
	require.NoError(t, env.DB.Take(&p, "fingerprint = ?", ref.Fingerprint).Error)
	assert.EqualValues(t, 2, p.SeenCount)
	require.NotNil(t, p.LastSeenAt)
	assert.True(t, p.LastSeenAt.Equal(testkit.Epoch.Add(time.Hour)))
}

func TestApplyTags(t *testing.T) {
	svc, env := newServices(t)
	ctx := context.Background()

	ref, err := svc.Photos.Ingest(ctx, service.IngestInput{Name: "p.png", Data: testkit.PNG(t, 2, 2, 7), MIME: "image/png"})
	require.NoError(t, err)

	tags, err := svc.Photos.ApplyTags(ctx, ref.Fingerprint, []string{"Cat", "cat", " Outdoor ", ""}, "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "outdoor", service.TagAnalyzed}, tags)

	// 已打标后不再修改
	tags, err = svc.Photos.ApplyTags(ctx, ref.Fingerprint, []string{"dog"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "outdoor", service.TagAnalyzed}, tags)

	var p model.Photo
	require.NoError(t, env.DB.Take(&p, "fingerprint = ?", ref.Fingerprint).Error)
	assert.Equal(t, []string{"cat", "outdoor", service.TagAnalyzed}, p.Tags())

	assert.Len(t, env.Pub.Messages(queue.TopicPhotoTagged), 1)

	_, err = svc.Photos.ApplyTags(ctx, "ffffffffffffffffffffffffffffffff", []string{"x"}, "admin")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestMergeTags(t *testing.T) {
	assert.Equal(t, []string{"a", "b", service.TagAnalyzed}, service.MergeTags([]string{"a"}, []string{"B", "a"}))
	assert.Equal(t, []string{service.TagAnalyzed}, service.MergeTags(nil, nil))
}

func TestPendingTaggingAndRepublish(t *testing.T) {
	svc, env := newServices(t)
	ctx := context.Background()

	old, err := svc.Photos.Ingest(ctx, service.IngestInput{Name: "old.png", Data: testkit.PNG(t, 2, 2, 1), MIME: "image/png"})
	require.NoError(t, err)

	tagged, err := svc.Photos.Ingest(ctx, service.IngestInput{Name: "tagged.png", Data: testkit.PNG(t, 2, 2, 2), MIME: "image/png"})
	require.NoError(t, err)
	_, err = svc.Photos.ApplyTags(ctx, tagged.Fingerprint, nil, "admin")
	require.NoError(t, err)

	env.Clock.Advance(2 * time.Hour)

	_, err = svc.Photos.Ingest(ctx, service.IngestInput{Name: "new.png", Data: testkit.PNG(t, 2, 2, 3), MIME: "image/png"})
	require.NoError(t, err)

	pending, err := svc.Photos.PendingTagging(ctx, time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, old.Fingerprint, pending[0].Fingerprint)

	require.NoError(t, svc.Photos.Republish(ctx, &pending[0]))

	stored := env.Pub.Messages(queue.TopicPhotoStored)
	last, err := queue.ParsePhotoStored(stored[len(stored)-1])
	require.NoError(t, err)
	assert.True(t, last.Payload.Backfill)
	assert.Equal(t, old.Fingerprint, last.Payload.Fingerprint)
}
