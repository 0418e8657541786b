package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/staticmd/pkg/configs"
	"github.com/yeisme/staticmd/pkg/internal/model"
	"github.com/yeisme/staticmd/pkg/internal/service"
	"github.com/yeisme/staticmd/pkg/internal/testkit"
	"github.com/yeisme/staticmd/pkg/queue"
)

func setup(t *testing.T, mutate func(*configs.AppConfig)) (*Runner, *service.Services, *testkit.Env) {
	t.Helper()

	env := testkit.New(t)
	cfg := testkit.Config()

	if mutate != nil {
		mutate(cfg)
	}

	svc := service.New(service.Deps{DB: env.DB, Blob: env.Blob, KV: env.KV, Publisher: env.Pub, Clock: env.Clock}, cfg)

	return NewRunner(svc, cfg), svc, env
}

func TestNames(t *testing.T) {
	r, _, _ := setup(t, nil)
	assert.Equal(t, []string{JobTokensReap}, r.Names())

	r, _, _ = setup(t, func(c *configs.AppConfig) {
		c.Tagging.Enabled = true
		c.Upload.TokenRetention = 0
	})
	assert.Equal(t, []string{JobTagsBackfill}, r.Names())
}

func TestReapTokens(t *testing.T) {
	r, svc, env := setup(t, nil)
	ctx := context.Background()

	_, err := svc.Tokens.Issue(ctx, "0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	env.Clock.Advance(25 * time.Hour)

	_, err = svc.Tokens.Issue(ctx, "0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	require.NoError(t, r.Run(ctx, JobTokensReap))

	var n int64
	require.NoError(t, env.DB.Model(&model.UploadToken{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestBackfillTags(t *testing.T) {
	r, svc, env := setup(t, func(c *configs.AppConfig) { c.Tagging.Enabled = true })
	ctx := context.Background()

	_, err := svc.Photos.Ingest(ctx, service.IngestInput{Name: "a.png", Data: testkit.PNG(t, 2, 2, 1), MIME: "image/png"})
	require.NoError(t, err)
	_, err = svc.Photos.Ingest(ctx, service.IngestInput{Name: "a.svg", Data: []byte("<svg/>"), MIME: "image/svg+xml"})
	require.NoError(t, err)

	before := len(env.Pub.Messages(queue.TopicPhotoStored))

	env.Clock.Advance(2 * time.Hour)
	require.NoError(t, r.Run(ctx, JobTagsBackfill))

	assert.Len(t, env.Pub.Messages(queue.TopicPhotoStored), before+1)
}

func TestRunUnknown(t *testing.T) {
	r, _, _ := setup(t, nil)
	require.ErrorIs(t, r.Run(context.Background(), "nope"), ErrUnknownJob)
}
