package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/staticmd/pkg/internal/model"
	"github.com/yeisme/staticmd/pkg/internal/service"
	"github.com/yeisme/staticmd/pkg/internal/testkit"
)

const fp = "0123456789abcdef0123456789abcdef"

func fixedDelay(d int) func(int, int) (int, error) {
	return func(int, int) (int, error) { return d, nil }
}

func TestTokenWindow(t *testing.T) {
	svc, env := newServices(t)
	ctx := context.Background()
	tokens := svc.Tokens.WithDelay(fixedDelay(2))

	tok, err := tokens.Issue(ctx, fp)
	require.NoError(t, err)
	assert.Len(t, tok.Secret, service.TokenSecretLength)
	assert.Equal(t, 2, tok.Delay)
	assert.Equal(t, 30, tok.ValidSeconds)
	assert.True(t, tok.ValidFrom.Equal(testkit.Epoch.Add(2*time.Second)))
	assert.True(t, tok.ExpireAt.Equal(testkit.Epoch.Add(32*time.Second)))
	assert.True(t, tok.ServerTime.Equal(testkit.Epoch))

	env.Clock.Advance(time.Second)
	require.ErrorIs(t, tokens.Validate(ctx, fp, tok.Secret), service.ErrTokenInvalid)

	env.Clock.Advance(9 * time.Second)
	require.NoError(t, tokens.Validate(ctx, fp, tok.Secret))

	// 令牌不会被消费，窗口内可以重复校验
	require.NoError(t, tokens.Validate(ctx, fp, tok.Secret))

	require.ErrorIs(t, tokens.Validate(ctx, "ffffffffffffffffffffffffffffffff", tok.Secret), service.ErrTokenInvalid)
	require.ErrorIs(t, tokens.Validate(ctx, fp, "wrong"), service.ErrTokenInvalid)

	env.Clock.Advance(23 * time.Second)
	require.ErrorIs(t, tokens.Validate(ctx, fp, tok.Secret), service.ErrTokenInvalid)
}

func TestTokenWindowInclusiveBounds(t *testing.T) {
	svc, env := newServices(t)
	ctx := context.Background()
	tokens := svc.Tokens.WithDelay(fixedDelay(2))

	tok, err := tokens.Issue(ctx, fp)
	require.NoError(t, err)

	env.Clock.Advance(tok.ValidFrom.Sub(env.Clock.Now()) - time.Nanosecond)
	require.ErrorIs(t, tokens.Validate(ctx, fp, tok.Secret), service.ErrTokenInvalid)

	env.Clock.Advance(time.Nanosecond)
	require.True(t, env.Clock.Now().Equal(tok.ValidFrom))
	require.NoError(t, tokens.Validate(ctx, fp, tok.Secret))

	env.Clock.Advance(tok.ExpireAt.Sub(env.Clock.Now()))
	require.True(t, env.Clock.Now().Equal(tok.ExpireAt))
	require.NoError(t, tokens.Validate(ctx, fp, tok.Secret))

	env.Clock.Advance(time.Nanosecond)
	require.ErrorIs(t, tokens.Validate(ctx, fp, tok.Secret), service.ErrTokenInvalid)
}

func TestTokenDelayWithinBounds(t *testing.T) {
	svc, _ := newServices(t)

	for range 20 {
		tok, err := svc.Tokens.Issue(context.Background(), fp)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, tok.Delay, 1)
		assert.LessOrEqual(t, tok.Delay, 3)
	}
}

func TestTokenPurge(t *testing.T) {
	svc, env := newServices(t)
	ctx := context.Background()
	tokens := svc.Tokens.WithDelay(fixedDelay(1))

	_, err := tokens.Issue(ctx, fp)
	require.NoError(t, err)

	env.Clock.Advance(2 * time.Hour)

	_, err = tokens.Issue(ctx, fp)
	require.NoError(t, err)

	n, err := tokens.Purge(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = tokens.Purge(ctx, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var left int64
	require.NoError(t, env.DB.Model(&model.UploadToken{}).Count(&left).Error)
	assert.EqualValues(t, 1, left)
}
