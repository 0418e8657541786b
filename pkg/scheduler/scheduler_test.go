package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/staticmd/pkg/scheduler"
)

func TestRunNowRecordsStatus(t *testing.T) {
	s, err := scheduler.NewScheduler(nil)
	require.NoError(t, err)

	done := make(chan struct{}, 2)

	require.NoError(t, s.AddDuration("ok", time.Hour, func(context.Context) error {
		done <- struct{}{}
		return nil
	}))
	require.NoError(t, s.AddCron("fails", "0 0 1 1 *", func(context.Context) error {
		done <- struct{}{}
		return errors.New("boom")
	}))

	s.Start()

	defer func() { _ = s.Stop() }()

	require.NoError(t, s.RunNow("ok"))
	require.NoError(t, s.RunNow("fails"))

	for range 2 {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("job did not run")
		}
	}

	assert.Eventually(t, func() bool {
		infos := s.GetJobInfos()
		return len(infos) == 2 &&
			infos[0].Name == "fails" && infos[0].Status == scheduler.StatusError &&
			infos[1].Name == "ok" && infos[1].Status == scheduler.StatusScheduled && !infos[1].LastSuccess.IsZero()
	}, 5*time.Second, 10*time.Millisecond)

	assert.Error(t, s.RunNow("missing"))
	assert.Error(t, s.AddDuration("ok", time.Minute, func(context.Context) error { return nil }))
}
