package service_test

import (
	"testing"

	"github.com/yeisme/staticmd/pkg/internal/service"
	"github.com/yeisme/staticmd/pkg/internal/testkit"
)

func newServices(t *testing.T) (*service.Services, *testkit.Env) {
	t.Helper()

	env := testkit.New(t)
	svc := service.New(service.Deps{
		DB:        env.DB,
		Blob:      env.Blob,
		KV:        env.KV,
		Publisher: env.Pub,
		Clock:     env.Clock,
	}, testkit.Config())

	return svc, env
}
