package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/staticmd/pkg/internal/model"
	"github.com/yeisme/staticmd/pkg/internal/service"
)

// sequence 依次返回 code-0, code-1, ...
func sequence() func(int) (string, error) {
	n := 0

	return func(int) (string, error) {
		code := fmt.Sprintf("code-%d", n)
		n++

		return code, nil
	}
}

func TestNewUniqueCodeRetries(t *testing.T) {
	taken := map[string]bool{}
	for i := range service.MaxCodeAttempts - 1 {
		taken[fmt.Sprintf("code-%d", i)] = true
	}

	gen := service.NewCodeGenerator(func(_ context.Context, code string) (bool, error) {
		return taken[code], nil
	}).WithSource(sequence())

	code, err := gen.NewUniqueCode(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("code-%d", service.MaxCodeAttempts-1), code)
}

func TestNewUniqueCodeExhausted(t *testing.T) {
	svc, env := newServices(t)

	calls := 0
	gen := service.NewCodeGenerator(func(context.Context, string) (bool, error) {
		calls++
		return true, nil
	}).WithSource(sequence())

	_, err := gen.NewUniqueCode(context.Background(), 6)
	require.ErrorIs(t, err, service.ErrIdentifierExhausted)
	assert.Equal(t, service.MaxCodeAttempts, calls)

	// 链接码耗尽时相册不落库
	agg := service.NewGalleryAggregator(env.DB, svc.Links, gen, nil, env.Clock, svc.Upload)
	_, err = agg.GroupOrReuse(context.Background(), []service.PhotoRef{{StorageKey: "a.png"}})
	require.ErrorIs(t, err, service.ErrIdentifierExhausted)

	var galleries, links int64
	require.NoError(t, env.DB.Model(&model.Gallery{}).Count(&galleries).Error)
	require.NoError(t, env.DB.Model(&model.Link{}).Count(&links).Error)
	assert.Zero(t, galleries)
	assert.Zero(t, links)
}

func TestRandomCode(t *testing.T) {
	code, err := service.RandomCode(6)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9A-Za-z]{6}$`, code)
}
